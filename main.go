package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"go-extension-exporter/internal/app"
	"go-extension-exporter/internal/browsers"
	"go-extension-exporter/internal/config"
	"go-extension-exporter/internal/export"
	"go-extension-exporter/internal/icons"
	"go-extension-exporter/internal/inventory"
	"go-extension-exporter/internal/locale"
	"go-extension-exporter/internal/logging"
)

type output struct {
	Extensions []listedExtension `json:"extensions"`
	Total      int               `json:"total"`
}

type listedExtension struct {
	browsers.Extension
	Group inventory.Kind `json:"group"`
}

type commonFlags struct {
	browser    string
	input      string
	configPath string
	locale     string
	refresh    bool
	debug      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.browser, "browser", "", "Browser to scan and write policies for (chrome, brave, edge)")
	fs.StringVar(&c.input, "input", "", "Read extensions from a chrome.management.getAll JSON dump instead of browser profiles")
	fs.StringVar(&c.configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&c.locale, "locale", "", "Language for report text (en, es)")
	fs.BoolVar(&c.refresh, "refresh", false, "Ignore the inventory cache and rescan profiles")
	fs.BoolVar(&c.debug, "debug", false, "Enable debug output")
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  extension-exporter list   [-json] [-permissions] [common flags]")
	fmt.Fprintln(os.Stderr, "  extension-exporter export [-format html|windows|macos|linux] [-all | -select id,id] [-allow-uninstall] [-out dir] [common flags]")
	fmt.Fprintln(os.Stderr, "Run a command with -h for its flags.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(ctx, os.Args[2:])
	case "export":
		err = runExport(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type session struct {
	cfg     *config.Config
	log     *zap.Logger
	strings locale.Strings
	ctrl    *app.Controller
	close   func() error
}

// setup loads configuration, applies the command line on top and loads the inventory
func setup(ctx context.Context, common commonFlags, allowUninstall bool) (*session, error) {
	cfg, err := config.Load(common.configPath)
	if err != nil {
		return nil, err
	}
	if common.browser != "" {
		b, err := browsers.ParseBrowser(common.browser)
		if err != nil {
			return nil, err
		}
		cfg.Export.Browser = string(b)
		cfg.Source.Browsers = []string{string(b)}
	}
	if common.input != "" {
		cfg.Source.Input = common.input
	}
	if allowUninstall {
		cfg.Export.AllowUninstall = true
	}
	browser, err := browsers.ParseBrowser(cfg.Export.Browser)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.LoggerConfig()
	if common.debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	source, closeSource, err := app.NewSource(cfg, common.refresh, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	strs := locale.Lookup(common.locale, cfg.Export.Locale)
	opts := icons.DefaultOptions()
	opts.Timeout = cfg.Icons.Timeout
	opts.Concurrency = cfg.Icons.Concurrency

	ctrl := app.NewController(source, icons.NewResolver(opts, log), app.Options{
		ExcludeIDs:     cfg.Source.ExcludeIDs,
		Browser:        browser,
		AllowUninstall: cfg.Export.AllowUninstall,
		RegUTF16:       cfg.Export.RegUTF16,
		Strings:        strs,
	}, log)

	s := &session{cfg: cfg, log: log, strings: strs, ctrl: ctrl, close: closeSource}
	if _, err := ctrl.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// emptyMessage tells apart an empty inventory from one where every record was filtered out
func (s *session) emptyMessage() string {
	if s.ctrl.Fetched() == 0 {
		return s.strings.NoExtensions
	}
	return s.strings.NoneAfterFilter
}

func (s *session) Close() {
	if err := s.close(); err != nil {
		s.log.Warn("failed to close inventory cache", zap.Error(err))
	}
	_ = s.log.Sync()
}

func runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	jsonOutput := fs.Bool("json", false, "Output in JSON format")
	showPermissions := fs.Bool("permissions", false, "Show the permissions of each extension")
	_ = fs.Parse(args)

	s, err := setup(ctx, common, false)
	if err != nil {
		return err
	}
	defer s.Close()

	groups := s.ctrl.Groups()

	if *jsonOutput {
		out := output{Extensions: []listedExtension{}, Total: groups.Len()}
		for _, section := range groups.Sections() {
			for _, ext := range section.Extensions {
				out.Extensions = append(out.Extensions, listedExtension{Extension: ext, Group: section.Kind})
			}
		}
		jsonData, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonData))
		return nil
	}

	if groups.Len() == 0 {
		fmt.Println(s.emptyMessage())
		return nil
	}

	i := 0
	for _, section := range groups.Sections() {
		title := sectionTitle(s.strings, section.Kind)
		fmt.Printf("%s (%d)\n", title, len(section.Extensions))
		fmt.Println(strings.Repeat("=", len(title)))
		for _, ext := range section.Extensions {
			i++
			fmt.Printf("%d. %s\n", i, ext.Name)
			fmt.Printf("   Browser: %s\n", ext.Browser)
			fmt.Printf("   Version: %s\n", ext.Version)
			fmt.Printf("   ID: %s\n", ext.ID)
			fmt.Printf("   Enabled: %v\n", ext.Enabled)
			if ext.Profile != "" {
				fmt.Printf("   Profile: %s\n", ext.Profile)
			}
			if ext.IsLocal() {
				fmt.Printf("   %s: %s\n", s.strings.LocalBadge, s.strings.ManualInstall)
			}
			if *showPermissions {
				perms, _ := s.ctrl.Permissions(ext.ID)
				if len(perms) == 0 {
					fmt.Printf("   %s: %s\n", s.strings.PermissionsTitle, s.strings.NoPermissions)
				} else {
					fmt.Printf("   %s: %s\n", s.strings.PermissionsTitle, strings.Join(perms, ", "))
				}
			}
			fmt.Println("------------------")
		}
	}
	fmt.Printf("%s: %d\n", s.strings.Total, groups.Len())
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	formatFlag := fs.String("format", "", "Export format (html, windows, macos, linux); defaults to the configured format")
	all := fs.Bool("all", false, "Export every listed extension")
	selectIDs := fs.String("select", "", "Comma separated extension IDs to export")
	allowUninstall := fs.Bool("allow-uninstall", false, "Write ExtensionSettings so users can remove the extensions")
	outDir := fs.String("out", "", "Directory to write the export to")
	_ = fs.Parse(args)

	s, err := setup(ctx, common, *allowUninstall)
	if err != nil {
		return err
	}
	defer s.Close()

	format, err := app.ResolveFormat(*formatFlag, s.cfg)
	if err != nil {
		return err
	}

	if len(s.ctrl.Records()) == 0 {
		fmt.Println(s.emptyMessage())
		return nil
	}

	if *all {
		s.ctrl.SelectAll()
	} else if *selectIDs != "" {
		var wanted []string
		for _, id := range strings.Split(*selectIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				wanted = append(wanted, id)
			}
		}
		for _, id := range s.ctrl.Select(wanted...) {
			s.log.Warn("ignoring unknown extension id", zap.String("id", id))
		}
	}

	artifact, err := s.ctrl.Export(ctx, format)
	if errors.Is(err, app.ErrNothingSelected) {
		return errors.New(s.strings.NothingSelected)
	}
	if err != nil {
		var validation *export.ValidationError
		if errors.As(err, &validation) {
			return fmt.Errorf("%s: %w", s.strings.ExportFailed, err)
		}
		return err
	}

	dir := *outDir
	if dir == "" {
		dir = s.cfg.Export.OutputDir
	}
	path, err := s.ctrl.Save(artifact, dir)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", s.strings.Saved, path)
	return nil
}

func sectionTitle(strs locale.Strings, kind inventory.Kind) string {
	switch kind {
	case inventory.KindLocal:
		return strs.SectionLocal
	case inventory.KindEnabled:
		return strs.SectionEnabled
	default:
		return strs.SectionDisabled
	}
}
