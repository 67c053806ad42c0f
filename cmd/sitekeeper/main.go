package main

import (
	"os"
	"strings"

	"sitekeeper/internal/cli"
	"sitekeeper/internal/content"
)

func isKind(s string) bool {
	_, err := content.ParseKind(s)
	return err == nil
}

func rewriteDirectKindArgs(argv []string) []string {
	// Convenience: `sitekeeper <kind>` works like `sitekeeper records list <kind>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv before parsing.
	// Persistent flags may come first (e.g. `sitekeeper --db ... members`), so find the first
	// positional token, not just argv[1].
	if len(argv) < 2 {
		return argv
	}

	// Unrecognized flags are skipped without consuming a value, so a kind
	// never gets eaten as one.
	valueFlags := map[string]bool{
		"--config": true,
		"--site":   true,
		"--db":     true,
		"--format": true,
	}
	boolFlags := map[string]bool{
		"--pretty":  true,
		"--verbose": true,
		"-v":        true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isKind(argv[i+1]) {
				out := make([]string, 0, len(argv)+2)
				out = append(out, argv[:i+1]...)
				out = append(out, "records", "list")
				out = append(out, argv[i+1:]...)
				return out
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") {
				continue
			}
			if boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
				continue
			}
			continue
		}

		if isKind(a) {
			out := make([]string, 0, len(argv)+2)
			out = append(out, argv[:i]...)
			out = append(out, "records", "list")
			out = append(out, argv[i:]...)
			return out
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectKindArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
