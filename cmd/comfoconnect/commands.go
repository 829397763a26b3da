package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/comfohome/comfoconnect"
	"github.com/comfohome/comfoconnect/pkg/discovery"
	"github.com/comfohome/comfoconnect/pkg/protocol"
	"github.com/comfohome/comfoconnect/pkg/sensors"
)

const commandTimeout = 30 * time.Second

// withSession resolves the bridge, connects and runs fn, always
// disconnecting afterwards.
func withSession(fn func(ctx context.Context, client *comfoconnect.ComfoConnect) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	client, err := resolveClient(ctx)
	if err != nil {
		return err
	}
	app, err := appUuid()
	if err != nil {
		return err
	}
	client.Bridge().SetDeviceName(opts.name)
	pin := opts.pin
	if err := client.Connect(ctx, app, &pin); err != nil {
		return err
	}
	defer client.Disconnect(context.Background())
	return fn(ctx, client)
}

// resolveClient uses the configured host or falls back to discovery.
func resolveClient(ctx context.Context) (*comfoconnect.ComfoConnect, error) {
	if opts.host != "" {
		found, err := discoverHost(ctx, opts.host)
		if err != nil {
			return nil, err
		}
		return comfoconnect.New(found.Host, found.Uuid), nil
	}
	bridges, err := discovery.Discover(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(bridges) == 0 {
		return nil, fmt.Errorf("no bridge found; pass --host")
	}
	return comfoconnect.New(bridges[0].Host, bridges[0].Uuid), nil
}

// discoverHost finds the uuid of a known host via discovery, since
// sessions need the bridge uuid for envelope addressing.
func discoverHost(ctx context.Context, host string) (discovery.Bridge, error) {
	bridges, err := discovery.Discover(ctx, 0)
	if err != nil {
		return discovery.Bridge{}, err
	}
	for _, b := range bridges {
		if b.Host == host {
			return b, nil
		}
	}
	return discovery.Bridge{}, fmt.Errorf("bridge %s did not answer discovery", host)
}

func discoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "List bridges answering on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			bridges, err := discovery.Discover(ctx, 0)
			if err != nil {
				return err
			}
			if len(bridges) == 0 {
				return fmt.Errorf("no bridge answered")
			}
			for _, b := range bridges {
				fmt.Printf("%s\t%s\tversion %d\n", b.Host, hex.EncodeToString(b.Uuid[:]), b.Version)
			}
			return nil
		},
	}
}

func registerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Pair this app with the bridge using the pin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				// Connect already registers when needed; confirm the slot.
				apps, err := client.Bridge().CmdListRegisteredApps(ctx)
				if err != nil {
					return err
				}
				for _, app := range apps {
					fmt.Printf("%s\t%s\n", hex.EncodeToString(app.Uuid), app.DeviceName)
				}
				return nil
			})
		},
	}
}

func deregisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deregister <uuid>",
		Short: "Remove a registration slot from the bridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(args[0])
			if err != nil || len(raw) != protocol.UUIDSize {
				return fmt.Errorf("expected 32 hex digits, got %q", args[0])
			}
			var target [protocol.UUIDSize]byte
			copy(target[:], raw)
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				return client.Bridge().CmdDeregisterApp(ctx, target)
			})
		},
	}
}

func listAppsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-apps",
		Short: "List registered apps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				apps, err := client.Bridge().CmdListRegisteredApps(ctx)
				if err != nil {
					return err
				}
				for _, app := range apps {
					fmt.Printf("%s\t%s\n", hex.EncodeToString(app.Uuid), app.DeviceName)
				}
				return nil
			})
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show bridge version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				v, err := client.Bridge().CmdVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("serial %s\tgateway %d\tcomfonet %d\n", v.SerialNumber, v.GatewayVersion, v.ComfoNetVersion)
				return nil
			})
		},
	}
}

var speedNames = map[string]comfoconnect.Speed{
	"away":   comfoconnect.SpeedAway,
	"low":    comfoconnect.SpeedLow,
	"medium": comfoconnect.SpeedMedium,
	"high":   comfoconnect.SpeedHigh,
}

func setSpeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-speed <away|low|medium|high>",
		Short: "Set the fan speed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			speed, ok := speedNames[args[0]]
			if !ok {
				return fmt.Errorf("unknown speed %q", args[0])
			}
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				return client.SetSpeed(ctx, speed)
			})
		},
	}
}

func getSpeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-speed",
		Short: "Read the fan speed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				speed, err := client.GetSpeed(ctx)
				if err != nil {
					return err
				}
				for name, value := range speedNames {
					if value == speed {
						fmt.Println(name)
						return nil
					}
				}
				fmt.Println(uint8(speed))
				return nil
			})
		},
	}
}

func setModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-mode <auto|manual>",
		Short: "Set the ventilation mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode comfoconnect.Mode
			switch args[0] {
			case "auto":
				mode = comfoconnect.ModeAuto
			case "manual":
				mode = comfoconnect.ModeManual
			default:
				return fmt.Errorf("unknown mode %q", args[0])
			}
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				return client.SetMode(ctx, mode)
			})
		},
	}
}

func getModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-mode",
		Short: "Read the ventilation mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				mode, err := client.GetMode(ctx)
				if err != nil {
					return err
				}
				if mode == comfoconnect.ModeAuto {
					fmt.Println("auto")
				} else {
					fmt.Println("manual")
				}
				return nil
			})
		},
	}
}

func setBoostCommand() *cobra.Command {
	var minutes uint
	cmd := &cobra.Command{
		Use:   "set-boost <on|off>",
		Short: "Run the fans at high speed for a while",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on := args[0] == "on"
			if !on && args[0] != "off" {
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				return client.SetBoost(ctx, on, time.Duration(minutes)*time.Minute)
			})
		},
	}
	cmd.Flags().UintVar(&minutes, "minutes", 60, "boost duration")
	return cmd
}

func setComfoCoolCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-comfocool <auto|off>",
		Short: "Set the ComfoCool mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode comfoconnect.ComfoCool
			switch args[0] {
			case "auto":
				mode = comfoconnect.ComfoCoolAuto
			case "off":
				mode = comfoconnect.ComfoCoolOff
			default:
				return fmt.Errorf("unknown comfocool mode %q", args[0])
			}
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				return client.SetComfoCoolMode(ctx, mode, 0)
			})
		},
	}
}

func showSensorsCommand() *cobra.Command {
	var wait uint
	cmd := &cobra.Command{
		Use:   "show-sensors",
		Short: "Subscribe to every known sensor and print updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				for _, sensor := range sensors.All() {
					if _, err := client.RegisterSensor(ctx, sensor, printSensor); err != nil {
						return err
					}
				}
				time.Sleep(time.Duration(wait) * time.Second)
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&wait, "seconds", 10, "how long to listen for updates")
	return cmd
}

func showSensorCommand() *cobra.Command {
	var wait uint
	cmd := &cobra.Command{
		Use:   "show-sensor <id>",
		Short: "Subscribe to one sensor and print updates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid sensor id %q", args[0])
			}
			sensor, ok := sensors.Get(uint16(id))
			if !ok {
				return fmt.Errorf("unknown sensor id %d", id)
			}
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				if _, err := client.RegisterSensor(ctx, sensor, printSensor); err != nil {
					return err
				}
				time.Sleep(time.Duration(wait) * time.Second)
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&wait, "seconds", 10, "how long to listen for updates")
	return cmd
}

func printSensor(sensor sensors.Sensor, value float64) {
	if sensor.Unit != "" {
		fmt.Printf("%d\t%s\t%g %s\n", sensor.Id, sensor.Name, value, sensor.Unit)
		return
	}
	fmt.Printf("%d\t%s\t%g\n", sensor.Id, sensor.Name, value)
}

func getPropertyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-property <name>",
		Short: "Read a device property",
		Long:  "Read a device property by name. Run without arguments to list known properties.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, p := range sensors.Properties {
					fmt.Printf("%s\t(unit %#02x subunit %#02x id %#04x, %s)\n", p.Name, p.Unit, p.Subunit, p.Id, p.Type)
				}
				return nil
			}
			prop, ok := sensors.PropertyByName(args[0])
			if !ok {
				return fmt.Errorf("unknown property %q", args[0])
			}
			return withSession(func(ctx context.Context, client *comfoconnect.ComfoConnect) error {
				value, err := client.GetProperty(ctx, prop)
				if err != nil {
					return err
				}
				fmt.Println(value)
				return nil
			})
		},
	}
}
