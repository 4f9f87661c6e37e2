package ledger

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"qledger/blockchain"
)

// Print writes the chain as a table. It only reads.
func (l *Ledger) Print(w io.Writer) error {
	blocks, err := l.Blocks()
	if err != nil {
		return err
	}
	return PrintBlocks(w, blocks)
}

func PrintBlocks(w io.Writer, blocks []*blockchain.Block) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Index", "Transactions", "Accuracy", "Nonce", "Timestamp", "Previous Hash", "Hash"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, b := range blocks {
		table.Append([]string{
			strconv.FormatUint(b.Index, 10),
			describePayload(b.Transactions),
			accuracyCell(b.MiningAccuracy),
			strconv.FormatUint(b.Nonce, 10),
			strconv.FormatFloat(b.Timestamp, 'f', 3, 64),
			abbreviate(b.PreviousHash),
			abbreviate(b.Hash),
		})
	}
	table.Render()
	return nil
}

func describePayload(p blockchain.Payload) string {
	switch p.Kind {
	case blockchain.PayloadRecord:
		return p.String()
	case blockchain.PayloadOpaque:
		s := strconv.QuoteToASCII(p.Opaque)
		if len(s) > 32 {
			s = s[:29] + "..."
		}
		return s
	default:
		return "[]"
	}
}

func accuracyCell(acc *float64) string {
	if acc == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *acc)
}

func abbreviate(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:8] + ".." + hash[len(hash)-6:]
}
