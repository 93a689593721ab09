// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/veilnet/veild/internal/version"
)

const (
	defaultLogDirname     = "logs"
	defaultLogFilename    = "veild.log"
	defaultDebugLevel     = "info"
	defaultResolveTimeout = 10 * time.Second
)

var (
	defaultAppData = appDataDir("veild")
	defaultLogDir  = filepath.Join(defaultAppData, defaultLogDirname)
)

// config defines the configuration options for veild.
//
// See loadConfig for details on the configuration load process.
type config struct {
	AppData        string        `long:"appdata" description:"Path to application home directory"`
	Authoritative  bool          `long:"authoritative" description:"Act as an authoritative directory and persist raw router descriptors"`
	DebugLevel     string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	IgnoreVersion  bool          `long:"ignoreversion" description:"Do not exit when the directory does not list this software version as recommended"`
	LogDir         string        `long:"logdir" description:"Directory to log output"`
	NoFileLogging  bool          `long:"nofilelogging" description:"Disable file logging"`
	ResolveTimeout time.Duration `long:"resolvetimeout" description:"Maximum duration of a single hostname resolution"`
	RouterFile     string        `long:"routerfile" description:"Path to a JSON file of seed dirservers used instead of the built-in list"`
	ShowVersion    bool          `short:"V" long:"version" description:"Display version information and exit"`
}

// errSuppressUsage signifies that an error that happened during the initial
// configuration phase should suppress the usage output since it was not
// caused by the user.
type errSuppressUsage string

// Error implements the error interface.
func (e errSuppressUsage) Error() string {
	return string(e)
}

// appDataDir returns an operating system specific data directory for the
// given application name.  The dcrutil variant additionally special cases a
// handful of platforms veild does not target, so a condensed version is used
// here instead of pulling in the whole package.
func appDataDir(appName string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "."
	}

	// Capitalized app name for the platforms that conventionally use it.
	capName := strings.ToUpper(appName[:1]) + appName[1:]

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, capName)
		}
		return filepath.Join(homeDir, capName)

	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support",
			capName)

	default:
		return filepath.Join(homeDir, "."+appName)
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Nothing to do when the path is empty.
	if path == "" {
		return path
	}

	// Expand initial ~ to the current user's home directory.
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil && homeDir != "" {
			path = strings.Replace(path, "~", homeDir, 1)
		}
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// loadConfig initializes and parses the config using command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative app data dir
//  3. Parse CLI options and overwrite/add any specified options
//
// The above results in veild functioning properly without any config
// settings while still allowing the user to override settings with command
// line flags.  It also initializes logging and configures it accordingly.
func loadConfig(appName string) (*config, []string, error) {
	// Default config.
	cfg := config{
		AppData:        defaultAppData,
		DebugLevel:     defaultDebugLevel,
		LogDir:         defaultLogDir,
		ResolveTimeout: defaultResolveTimeout,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, errSuppressUsage(err.Error())
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Update the application data and log directories if specified.  Since
	// the log directory defaults to a path relative to the app data
	// directory, it follows a relocated app data directory unless it was
	// explicitly overridden.
	cfg.AppData = cleanAndExpandPath(cfg.AppData)
	if cfg.AppData != defaultAppData && cfg.LogDir == defaultLogDir {
		cfg.LogDir = filepath.Join(cfg.AppData, defaultLogDirname)
	}
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	// Create the application data directory.
	if err := os.MkdirAll(cfg.AppData, 0700); err != nil {
		str := "failed to create home directory: %v"
		return nil, nil, errSuppressUsage(fmt.Sprintf(str, err))
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After the log rotation has been initialized,
	// the logger variables may be used.
	if !cfg.NoFileLogging {
		initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %w", "loadConfig", err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// The resolve timeout bounds every individual hostname lookup and must
	// be positive.
	if cfg.ResolveTimeout <= 0 {
		err := fmt.Errorf("loadConfig: the resolve timeout of %v is invalid "+
			"-- must be greater than zero", cfg.ResolveTimeout)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// A specified seed router file must exist.
	if cfg.RouterFile != "" {
		cfg.RouterFile = cleanAndExpandPath(cfg.RouterFile)
		if _, err := os.Stat(cfg.RouterFile); err != nil {
			err := fmt.Errorf("loadConfig: router file %q: %w", cfg.RouterFile,
				err)
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	return &cfg, remainingArgs, nil
}
