// Command comfoconnect is a small front end over the client library:
// discover bridges, pair an app and drive the ventilation unit.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/ini.v1"
)

type options struct {
	profile string
	host    string
	uuid    string
	pin     uint32
	name    string
	verbose bool
}

var opts options

func main() {
	root := &cobra.Command{
		Use:           "comfoconnect",
		Short:         "Control a Zehnder ComfoConnect LAN C bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
			loadProfile()
		},
	}

	root.PersistentFlags().StringVar(&opts.profile, "profile", defaultProfilePath(), "ini profile with host, uuid, pin and name")
	root.PersistentFlags().StringVar(&opts.host, "host", "", "bridge address (overrides profile)")
	root.PersistentFlags().StringVar(&opts.uuid, "uuid", "", "32 hex digit app uuid (overrides profile)")
	root.PersistentFlags().Uint32Var(&opts.pin, "pin", 0, "bridge pairing pin")
	root.PersistentFlags().StringVar(&opts.name, "name", "comfoconnect-go", "device name shown on the bridge")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		discoverCommand(),
		registerCommand(),
		deregisterCommand(),
		listAppsCommand(),
		versionCommand(),
		setSpeedCommand(),
		getSpeedCommand(),
		setModeCommand(),
		getModeCommand(),
		setBoostCommand(),
		setComfoCoolCommand(),
		showSensorsCommand(),
		showSensorCommand(),
		getPropertyCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".comfoconnect.ini"
	}
	return filepath.Join(home, ".comfoconnect.ini")
}

// loadProfile fills unset options from the ini profile, when present.
// Flags always win.
func loadProfile() {
	cfg, err := ini.Load(opts.profile)
	if err != nil {
		log.Debugf("no profile loaded from %s: %v", opts.profile, err)
		return
	}
	section := cfg.Section("bridge")
	if opts.host == "" {
		opts.host = section.Key("host").String()
	}
	if opts.uuid == "" {
		opts.uuid = section.Key("uuid").String()
	}
	if opts.pin == 0 {
		opts.pin = uint32(section.Key("pin").MustUint(0))
	}
	if name := section.Key("name").String(); name != "" && opts.name == "comfoconnect-go" {
		opts.name = name
	}
}

// appUuid parses the configured app uuid, or generates a new random
// one and reports it so the operator can persist it.
func appUuid() (uuid.UUID, error) {
	if opts.uuid == "" {
		generated := uuid.New()
		fmt.Fprintf(os.Stderr, "no app uuid configured, using %s (add it to %s to keep the pairing)\n",
			generated, opts.profile)
		return generated, nil
	}
	parsed, err := uuid.Parse(opts.uuid)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid app uuid %q: %w", opts.uuid, err)
	}
	return parsed, nil
}
