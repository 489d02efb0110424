package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nao1215/clarityfilter/internal/config"
	"github.com/nao1215/clarityfilter/internal/matcher"
	"github.com/nao1215/clarityfilter/internal/settings"
)

//go:embed templates/clarityfilter.yaml
var configTemplate []byte

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or check a ClarityFilter configuration file",
		Long: `Init writes a commented .clarityfilter file to the current directory.
The file selects the regexp engine and adjusts stored settings per site:
a default mode, extra terms and sites where filtering is off.

The file is written next to its destination first and loaded back before it
replaces anything, so an existing configuration is never left half written.

With --check nothing is written. The file named by --output is loaded and
every engine, mode and cell size in it is verified.

Examples:
  clarityfilter init
  clarityfilter init -o ~/.clarityfilter -f
  clarityfilter init --stdout > site.yaml
  clarityfilter init --check -o ~/.clarityfilter`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Path of the configuration file")
	cmd.Flags().BoolP("force", "f", false,
		"Replace an existing configuration file")
	cmd.Flags().Bool("stdout", false,
		"Print the template instead of writing a file")
	cmd.Flags().Bool("check", false,
		"Verify an existing configuration file instead of writing one")
	cmd.MarkFlagsMutuallyExclusive("stdout", "check")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	path, err := flags.GetString("output")
	if err != nil {
		return err
	}
	force, err := flags.GetBool("force")
	if err != nil {
		return err
	}
	toStdout, err := flags.GetBool("stdout")
	if err != nil {
		return err
	}
	check, err := flags.GetBool("check")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case toStdout:
		_, err := out.Write(configTemplate)
		return err
	case check:
		cf, err := loadAndCheck(path)
		if errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("%w: %s", err, path)
		}
		if err != nil {
			return err
		}
		describeConfigFile(out, path, cf)
		return nil
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
		}
	}
	cf, err := installConfigFile(path, configTemplate)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Created configuration file: %s\n", path)
	describeConfigFile(out, path, cf)
	fmt.Fprintln(out, "\nTerms and the whitelist are stored separately, for example:")
	fmt.Fprintln(out, "  clarityfilter settings add \"Some Name\"")
	fmt.Fprintln(out, "  clarityfilter settings enable")
	return nil
}

// installConfigFile writes content beside path, loads it back and renames it
// into place. path is untouched when any step fails.
func installConfigFile(path string, content []byte) (*config.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to write configuration file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(content); err != nil {
		tmp.Close() //nolint:errcheck,gosec // the write error is reported
		return nil, fmt.Errorf("failed to write configuration file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write configuration file: %w", err)
	}

	cf, err := loadAndCheck(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("generated configuration is invalid: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("failed to write configuration file: %w", err)
	}
	return cf, nil
}

// loadAndCheck loads a configuration file and verifies the values that
// LoadConfigFile only decodes.
func loadAndCheck(path string) (*config.File, error) {
	cf, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := matcher.ParseEngine(cf.Engine); err != nil {
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidEngine, cf.Engine)
	}
	if err := checkSiteConfig("defaults", cf.Defaults); err != nil {
		return nil, err
	}
	for _, host := range sortedHosts(cf) {
		if err := checkSiteConfig("sites."+host, cf.Sites[host]); err != nil {
			return nil, err
		}
	}
	return cf, nil
}

// checkSiteConfig reports the first invalid value of one entry.
func checkSiteConfig(where string, sc config.SiteConfig) error {
	if sc.Mode != "" {
		if _, err := settings.ParseMode(sc.Mode); err != nil {
			return fmt.Errorf("%s: %w: %q", where, config.ErrInvalidMode, sc.Mode)
		}
	}
	if sc.PixelCellSize != 0 &&
		(sc.PixelCellSize < settings.MinPixelCellSize || sc.PixelCellSize > settings.MaxPixelCellSize) {
		return fmt.Errorf("%s: %w", where, config.ErrInvalidPixelCellSize)
	}
	return nil
}

// describeConfigFile prints what a loaded configuration changes.
func describeConfigFile(w io.Writer, path string, cf *config.File) {
	engine, err := matcher.ParseEngine(cf.Engine)
	if err != nil {
		engine = matcher.EngineBacktracking
	}
	mode := cf.Defaults.Mode
	if mode == "" {
		mode = "stored"
	}

	fmt.Fprintf(w, "%s is valid\n", path)
	fmt.Fprintf(w, "  Engine:       %s\n", engine)
	fmt.Fprintf(w, "  Default mode: %s\n", mode)
	fmt.Fprintf(w, "  Extra terms:  %d\n", len(cf.Defaults.ExtraTerms))
	fmt.Fprintf(w, "  Site entries: %d\n", len(cf.Sites))
	for _, host := range sortedHosts(cf) {
		if cf.Sites[host].Disabled {
			fmt.Fprintf(w, "    %s (disabled)\n", host)
			continue
		}
		fmt.Fprintf(w, "    %s\n", host)
	}
}

func sortedHosts(cf *config.File) []string {
	hosts := make([]string, 0, len(cf.Sites))
	for host := range cf.Sites {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}
