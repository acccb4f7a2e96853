package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/solvefy/solvefy/internal/auth"
	"github.com/solvefy/solvefy/internal/catalog"
	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/report"
	"github.com/solvefy/solvefy/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import nested category documents (YAML or JSON) into the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	storeFlags(cmd)
	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report broken references between catalog collections",
		RunE:  runCheck,
	}
	storeFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export per-user progress and bookmarks",
		RunE:  runExport,
	}
	storeFlags(cmd)
	f := cmd.Flags()
	f.StringP("format", "f", "json", "Output format (json, xlsx)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE:  runUserCreate,
	}
	storeFlags(create)
	f := create.Flags()
	f.String("username", "", "Login name (required)")
	f.String("password", "", "Password (required)")
	f.String("role", string(model.UserRoleStudent), "Role (student, teacher, admin)")
	f.String("full-name", "", "Display name (defaults to the username)")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, path := range args {
		stats, skipped, err := catalog.ImportFile(ctx, st, path)
		if err != nil {
			return err
		}
		if skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: unchanged\n", path)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: added %v, skipped %v\n", path, stats.Added, stats.Skipped)
	}
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load collections: %w", err)
	}
	problems := catalog.Check(snap)
	out := cmd.OutOrStdout()
	for _, p := range problems {
		fmt.Fprintln(out, p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("found %d problem(s)", len(problems))
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	format, err := report.ParseFormat(v.GetString("format"))
	if err != nil {
		return err
	}

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	exp, err := st.ExportProgress(ctx)
	if err != nil {
		return fmt.Errorf("export progress: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		if format == report.FormatXLSX {
			return fmt.Errorf("xlsx output needs a file: use --output")
		}
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := report.Write(w, format, exp); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("exported progress", "users", exp.NumUsers, "format", format, "output", outPath)
	return nil
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	password := v.GetString("password")
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u, err := st.CreateUser(ctx, store.UserInput{
		Username:     v.GetString("username"),
		Password:     password,
		PasswordHash: hash,
		FullName:     v.GetString("full-name"),
		Role:         model.UserRole(v.GetString("role")),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s, %s)\n", u.Username, u.ID, u.Role)
	return nil
}
