// Command grievance-desk is a terminal client for the grievance portal:
// it lists complaints, shows real-time notifications and lets managers
// update complaint status.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/nhle/grievance-desk/internal/model"
)

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	email      string
}

// command is one subcommand of the CLI.
type command struct {
	name        string
	description string
	run         func(opts options) error
}

var commands = []command{
	{name: "run", description: "Open the complaint desk (default)", run: runDesk},
	{name: "login", description: "Sign in and store the session in the system keyring", run: runLogin},
	{name: "logout", description: "Forget the session and purge the local cache", run: runLogout},
	{name: "init", description: "Write a config file with the current settings", run: runInit},
}

func main() {
	if err := execute(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// execute dispatches args to a subcommand. Global flags may appear
// before or after the subcommand name.
func execute(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("grievance-desk", pflag.ContinueOnError)
	fs.SetOutput(out)
	var opts options
	fs.StringVarP(&opts.configPath, "config", "c", model.DefaultConfigPath(), "path to the config file")
	fs.StringVar(&opts.email, "email", "", "prefill the login email")
	fs.Usage = func() { printUsage(out, fs) }

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	name := "run"
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		name = rest[0]
	default:
		return fmt.Errorf("unexpected arguments: %v", rest[1:])
	}

	for _, c := range commands {
		if c.name == name {
			return c.run(opts)
		}
	}

	printUsage(out, fs)
	return fmt.Errorf("unknown command %q", name)
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: grievance-desk [run|login|logout|init] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.description)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
}

// runInit writes the effective configuration, defaults plus any
// GRIEVANCE_* overrides, so it can be edited by hand. An existing file
// is left alone.
func runInit(opts options) error {
	if _, err := os.Stat(opts.configPath); err == nil {
		return fmt.Errorf("config %s already exists", opts.configPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg, err := model.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if err := model.SaveConfig(opts.configPath, cfg); err != nil {
		return err
	}
	fmt.Println("Wrote", opts.configPath)
	return nil
}
