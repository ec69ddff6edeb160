package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skelly-dev/atlas/internal/gitinfo"
	"github.com/spf13/cobra"
)

const (
	HookStart = "# >>> atlas build hook >>>"
	HookEnd   = "# <<< atlas build hook <<<"
)

func runInstallHook(cmd *cobra.Command, opts *globalOptions) error {
	rootPath, err := filepath.Abs(opts.root)
	if err != nil {
		return fmt.Errorf("failed to resolve path %q: %w", opts.root, err)
	}

	repoRoot, gitDir, err := gitinfo.Root(rootPath)
	if err != nil {
		return err
	}
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("git directory %s not found; linked work trees are not supported", gitDir)
	}

	hookPath := filepath.Join(gitDir, "hooks", "pre-commit")
	if err := os.MkdirAll(filepath.Dir(hookPath), 0755); err != nil {
		return fmt.Errorf("failed to create hook directory: %w", err)
	}

	existing := ""
	if data, err := os.ReadFile(hookPath); err == nil {
		existing = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing hook: %w", err)
	}

	updated := UpsertAtlasHook(existing, repoRoot)
	if err := os.WriteFile(hookPath, []byte(updated), 0755); err != nil {
		return fmt.Errorf("failed to write hook: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed pre-commit hook at %s\n", hookPath)
	return nil
}

// UpsertAtlasHook adds the atlas block to a hook script, replacing an earlier
// atlas block and keeping everything else.
func UpsertAtlasHook(existingHook, repoRoot string) string {
	block := BuildAtlasHookBlock(repoRoot)

	if existingHook == "" {
		return "#!/bin/sh\n\n" + block + "\n"
	}

	start := strings.Index(existingHook, HookStart)
	end := strings.Index(existingHook, HookEnd)
	if start >= 0 && end >= start {
		end += len(HookEnd)
		updated := existingHook[:start] + block + existingHook[end:]
		return ensureTrailingNewline(updated)
	}

	base := ensureTrailingNewline(existingHook)
	if !strings.HasPrefix(base, "#!") {
		base = "#!/bin/sh\n" + base
	}
	return base + "\n" + block + "\n"
}

func BuildAtlasHookBlock(repoRoot string) string {
	return fmt.Sprintf(
		"%s\nrepo_root=%q\nif command -v atlas >/dev/null 2>&1; then\n  (cd \"$repo_root\" && atlas build) || exit 1\nfi\n%s",
		HookStart,
		repoRoot,
		HookEnd,
	)
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
