package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	decodeFile  string
	decodeIsHex bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex]",
	Short: "Decode PDUs offline",
	Long: `Decode parses a datagram given as hex on the command line or read from a file.
Datagrams carrying several bundled PDUs are split and each PDU is printed.

Examples:
  # Decode hex from the command line
  edgeo-dis decode 07011a04...

  # Decode a binary capture of one datagram
  edgeo-dis decode -f capture.bin

  # Decode a text file holding hex
  edgeo-dis decode -f capture.txt --hex

  # Decode an edition 5 capture
  edgeo-dis decode -e 5 -f capture.bin`,

	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeFile, "file", "f", "", "Read the datagram from a file")
	decodeCmd.Flags().BoolVar(&decodeIsHex, "hex", false, "The file holds hex text instead of binary")
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := decodeInput(args)
	if err != nil {
		return err
	}

	codec, err := createCodec()
	if err != nil {
		return err
	}

	parts, splitErr := codec.Split(data)
	f := newFormatter()
	now := time.Now()
	failed := 0
	for i, part := range parts {
		pdu, err := codec.Decode(part)
		if err != nil {
			fmt.Fprintf(os.Stderr, "PDU %d: %v\n", i, err)
			failed++
			continue
		}
		f.PrintPDU(now, pdu, part)
	}
	if splitErr != nil {
		return fmt.Errorf("datagram: %w", splitErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d PDUs failed to decode", failed, len(parts))
	}
	return nil
}

func decodeInput(args []string) ([]byte, error) {
	switch {
	case decodeFile != "" && len(args) > 0:
		return nil, fmt.Errorf("give either hex or --file, not both")
	case decodeFile != "":
		raw, err := os.ReadFile(decodeFile)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", decodeFile, err)
		}
		if decodeIsHex {
			return parseHex(strings.TrimSpace(string(raw)))
		}
		return raw, nil
	case len(args) == 1:
		return parseHex(args[0])
	default:
		return nil, fmt.Errorf("hex argument or --file is required")
	}
}
