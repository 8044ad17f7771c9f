// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package cmd

import (
	"fmt"
	"os"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/spf13/cobra"

	"github.com/contiv/drvctl/pkg/drvctl/cmdimpl"
	"github.com/contiv/drvctl/pkg/override"
	"github.com/contiv/drvctl/pkg/persist"
	"github.com/contiv/drvctl/pkg/sysbus"
)

var (
	busFlag    string
	configFile string
	noProbe    bool
	noSave     bool
	debug      bool
)

var cmdSetOverride = &cobra.Command{
	Use:   "set-override device driver",
	Short: "Unbind the device and set a driver override, so that only the given driver may claim it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := newDeps()
		if err != nil {
			return err
		}
		return deps.SetOverride(args[0], args[1])
	},
}

var cmdUnsetOverride = &cobra.Command{
	Use:   "unset-override device",
	Short: "Clear the device's driver override and forget the persisted choice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := newDeps()
		if err != nil {
			return err
		}
		return deps.UnsetOverride(args[0])
	},
}

var cmdLoadOverride = &cobra.Command{
	Use:   "load-override device",
	Short: "Re-apply the persisted driver override of the device (used from device-event hooks)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := newDeps()
		if err != nil {
			return err
		}
		return deps.LoadOverride(args[0])
	},
}

var cmdGetDriver = &cobra.Command{
	Use:   "get-driver device",
	Short: "Print the name of the driver the device is currently bound to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := newDeps()
		if err != nil {
			return err
		}
		return deps.GetDriver(args[0])
	},
}

var cmdListDevices = &cobra.Command{
	Use:   "list-devices [class]",
	Short: "List overridable devices on the bus, optionally filtered by device class",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := newDeps()
		if err != nil {
			return err
		}
		return deps.ListDevices(classArg(args))
	},
}

var cmdListOverrides = &cobra.Command{
	Use:   "list-overrides [class]",
	Short: "List devices currently carrying a driver override",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := newDeps()
		if err != nil {
			return err
		}
		return deps.ListOverrides(classArg(args))
	},
}

var cmdListPersisted = &cobra.Command{
	Use:   "list-persisted",
	Short: "List the driver overrides persisted for the bus",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := newDeps()
		if err != nil {
			return err
		}
		return deps.ListPersisted()
	},
}

// Execute runs the drvctl command line. Exits with code 1 on any failure;
// a load-override with nothing persisted exits 1 without a message, so that
// hook scripts are not alarmed by a no-op.
func Execute() {
	rootCmd := &cobra.Command{
		Use:           "drvctl",
		Short:         "Inspect & control which kernel driver is bound to a bus device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&busFlag, "bus", "b", "",
		"bus to operate on (default: $"+cmdimpl.BusEnvVar+", else "+cmdimpl.DefaultBus+")")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"location of an optional YAML config file")
	rootCmd.PersistentFlags().BoolVar(&noProbe, "noprobe", false,
		"do not reprobe the device after changing the override")
	rootCmd.PersistentFlags().BoolVar(&noSave, "nosave", false,
		"do not persist (nor delete) the override choice")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "v", false,
		"enable debug logs")

	rootCmd.AddCommand(cmdSetOverride)
	rootCmd.AddCommand(cmdUnsetOverride)
	rootCmd.AddCommand(cmdLoadOverride)
	rootCmd.AddCommand(cmdGetDriver)
	rootCmd.AddCommand(cmdListDevices)
	rootCmd.AddCommand(cmdListOverrides)
	rootCmd.AddCommand(cmdListPersisted)

	if err := rootCmd.Execute(); err != nil {
		if err != override.ErrNothingPersisted {
			fmt.Fprintln(os.Stderr, "drvctl:", err)
		}
		os.Exit(1)
	}
}

// newDeps assembles the command collaborators from flags, config file and
// environment. Flags win over the config file, the config file over the
// environment.
func newDeps() (*cmdimpl.Deps, error) {
	logger := logrus.DefaultLogger()
	if debug {
		logger.SetLevel(logging.DebugLevel)
	}

	config, err := cmdimpl.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	bus := config.Bus
	if busFlag != "" {
		bus = busFlag
	}

	fs := sysbus.NewFS("")
	return &cmdimpl.Deps{
		FS: fs,
		Ctl: &override.Controller{
			FS:          fs,
			Loader:      &override.Modprobe{Log: logger},
			Log:         logger,
			Passthrough: config.VFIODriver,
			NoProbe:     noProbe || config.NoProbe,
		},
		Store:   persist.NewStore(config.StateDir, logger),
		Log:     logger,
		Out:     os.Stdout,
		Bus:     bus,
		DevPath: os.Getenv(cmdimpl.DevPathEnvVar),
		NoSave:  noSave || config.NoSave,
	}, nil
}

func classArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return ""
}
