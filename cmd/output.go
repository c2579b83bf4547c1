package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/enrolytics-cli/internal/config"
	"github.com/KaramelBytes/enrolytics-cli/internal/utils"
)

// resolveFormat picks the --format flag when set, else the configured default.
func resolveFormat(flag string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(flag))
	if f == "" && cfg != nil {
		f = cfg.OutputFormat
	}
	if f == "" {
		f = "markdown"
	}
	if f == "md" {
		f = "markdown"
	}
	return f, cfgpkg.CheckFormat(f)
}

// encode renders v in format; markdown falls back to md.
func encode(v any, md func() string, format string) ([]byte, error) {
	switch format {
	case "json":
		return utils.PrettyJSON(v)
	case "yaml":
		return utils.YAML(v)
	}
	return []byte(md()), nil
}

// extension maps a format to the file suffix used by batch output.
func extension(format string) string {
	switch format {
	case "json":
		return ".json"
	case "yaml":
		return ".yaml"
	}
	return ".md"
}

// emit writes b to path, or to the command's stdout when path is empty.
func emit(cmd *cobra.Command, b []byte, path string) error {
	if path == "" {
		out := cmd.OutOrStdout()
		if _, err := out.Write(b); err != nil {
			return err
		}
		if len(b) > 0 && b[len(b)-1] != '\n' {
			_, _ = io.WriteString(out, "\n")
		}
		return nil
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}
