// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeo/drivers/dis/dis"
	"github.com/edgeo/drivers/dis/dis/session"
)

var (
	cfgFile     string
	localAddr   string
	port        int
	destination string
	broadcast   bool
	exercise    int
	edition     int
	timeout     time.Duration
	outputFmt   string
	verbose     bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "edgeo-dis",
	Short: "A DIS (IEEE 1278.1) PDU tool",
	Long: `edgeo-dis is a command-line tool for Distributed Interactive Simulation traffic.

It decodes entity state, signal and receiver PDUs, tracks remote entities
with heartbeat expiry, and can emit PDUs for testing.

Examples:
  # Listen on the default port and print PDUs and entity events
  edgeo-dis listen

  # Track entities using a prototype matcher file
  edgeo-dis listen --matcher prototypes.yaml --exercise 1

  # Decode a captured PDU
  edgeo-dis decode 07011a0400000000002000000001000200030004000000000000000000000000

  # Broadcast an entity state
  edgeo-dis send entity --broadcast --id 1:2:3 --type 1.2.225.1`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := slog.LevelInfo
		if viper.GetBool("verbose") {
			logLevel = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))

		if _, err := configuredEdition(); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.edgeo-dis.yaml)")
	rootCmd.PersistentFlags().StringVar(&localAddr, "local", "", "Local address to bind to (default :<port>)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", dis.DefaultPort, "DIS UDP port")
	rootCmd.PersistentFlags().StringVarP(&destination, "dest", "H", "", "Destination host for sent PDUs")
	rootCmd.PersistentFlags().BoolVarP(&broadcast, "broadcast", "b", false, "Send to the broadcast address")
	rootCmd.PersistentFlags().IntVarP(&exercise, "exercise", "x", 1, "Exercise ID (0 accepts any when listening)")
	rootCmd.PersistentFlags().IntVarP(&edition, "edition", "e", int(dis.ProtocolVersion7), "Protocol edition (5, 6 or 7)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 3*time.Second, "Send timeout")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format (table, json, raw)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	viper.BindPFlag("local", rootCmd.PersistentFlags().Lookup("local"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("dest", rootCmd.PersistentFlags().Lookup("dest"))
	viper.BindPFlag("broadcast", rootCmd.PersistentFlags().Lookup("broadcast"))
	viper.BindPFlag("exercise", rootCmd.PersistentFlags().Lookup("exercise"))
	viper.BindPFlag("edition", rootCmd.PersistentFlags().Lookup("edition"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(matcherCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".edgeo-dis")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DIS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func configuredEdition() (dis.ProtocolVersion, error) {
	v := dis.ProtocolVersion(viper.GetInt("edition"))
	if !v.Supported() {
		return 0, fmt.Errorf("%w: %d", dis.ErrUnknownEdition, v)
	}
	return v, nil
}

func configuredExercise() uint8 {
	return uint8(viper.GetInt("exercise"))
}

// createCodec creates a codec for the configured edition
func createCodec() (*dis.Codec, error) {
	v, err := configuredEdition()
	if err != nil {
		return nil, err
	}
	return dis.NewCodec(dis.WithEdition(v))
}

// openConn opens the UDP endpoint described by the global flags
func openConn(ctx context.Context, bind bool) (*session.UDPConn, error) {
	cfg := session.UDPConfig{
		LocalAddr:   viper.GetString("local"),
		Destination: viper.GetString("dest"),
		Broadcast:   viper.GetBool("broadcast"),
		Port:        viper.GetInt("port"),
		Timeout:     viper.GetDuration("timeout"),
	}
	if bind && cfg.LocalAddr == "" {
		cfg.LocalAddr = fmt.Sprintf(":%d", cfg.Port)
	}
	return session.OpenUDP(ctx, cfg)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("edgeo-dis version 1.0.0")
	},
}
