// pcapdump prints the MAC PDU records of a capture file written by
// the PHY worker's pcap sink.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/ransys/phycore/pcapsink"
)

func main() {
	withHex := pflag.Bool("hex", false, "dump each PDU's bytes as hex")
	pflag.Parse()

	if pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: pcapdump [--hex] <file.pcap>\n")
		os.Exit(2)
	}

	records, err := pcapsink.ReadFile(pflag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pcapdump: %v\n", err)
		os.Exit(1)
	}

	for i, rec := range records {
		kind := "MAC"
		if rec.IsRAR {
			kind = "RAR"
		}
		fmt.Printf("%5d  %s  %s  tti=%d (sfn %d sf %d)  rnti=0x%04x  %d bytes  %s\n",
			i, rec.Timestamp.Format("15:04:05.000000"), rec.Direction, rec.TTI,
			rec.TTI/10, rec.TTI%10, rec.RNTI, len(rec.Bytes), kind)
		if *withHex {
			fmt.Print(hex.Dump(rec.Bytes))
		}
	}
}
