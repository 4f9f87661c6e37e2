package main

import (
	"encoding/json"
	"fmt"
	"log"
	mathrand "math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	qtesting "qledger/testing"
)

func main() {
	count := pflag.IntP("count", "n", 3, "number of transaction scripts to generate")
	seed := pflag.Int64("seed", 1, "seed for the random transactions")
	addr := pflag.String("addr", "http://localhost:8372", "base URL of the ledger API")
	outDir := pflag.StringP("out", "o", "curl", "output directory")
	pflag.Parse()

	fmt.Println("Generating curl test scripts with sample transactions...")

	rng := mathrand.New(mathrand.NewSource(*seed))
	txs := qtesting.GenerateRandomTransactions(rng, *count, 1000)

	for i, tx := range txs {
		n := i + 1

		jsonData, err := json.MarshalIndent(tx, "", "  ")
		if err != nil {
			log.Printf("Failed to marshal transaction %d: %v", n, err)
			continue
		}

		scriptContent := fmt.Sprintf(`#!/bin/bash
echo "=== Testing POST /api/transactions - Transaction %d ==="
echo "%s -> %s: %d"
echo ""

curl -X POST %s/api/transactions \
  -H "Content-Type: application/json" \
  -d '%s' \
  --max-time 10 \
  --connect-timeout 2 \
  --fail-with-body \
  | jq '.' 2>/dev/null || cat
echo -e "\n"
`, n, tx.Sender, tx.Recipient, tx.Amount, *addr, jsonData)

		filename := filepath.Join(*outDir, fmt.Sprintf("post_transaction_%d.sh", n))
		if err := writeScript(filename, scriptContent); err != nil {
			log.Printf("Failed to write script %s: %v", filename, err)
			continue
		}

		fmt.Printf("Generated: %s\n", filename)
	}

	sequentialScript := fmt.Sprintf(`#!/bin/bash
echo "=== Testing Sequential Transaction Submission ==="
echo "Make sure your ledger is running first!"
echo ""

# Check if server is running
if ! curl -s --connect-timeout 2 --max-time 2 %[1]s/api/chain/height > /dev/null; then
    echo "Server not responding at %[1]s"
    echo "Start your ledger with: go run ./cmd/qledger serve"
    exit 1
fi

echo "Server is running. Submitting transactions sequentially..."
echo ""

`, *addr)
	for i := 1; i <= len(txs); i++ {
		sequentialScript += fmt.Sprintf("echo \"Submitting transaction %d...\"\n%s/post_transaction_%d.sh || echo \"Transaction %d rejected, continuing...\"\necho \"\"\n\n", i, *outDir, i, i)
	}

	sequentialScript += fmt.Sprintf(`echo "Sequential submission completed!"
echo "Check chain height:"
curl -s --connect-timeout 2 --max-time 2 %[1]s/api/chain/height | jq '.' 2>/dev/null || cat
echo ""
echo "Validate chain:"
curl -s --connect-timeout 2 --max-time 5 %[1]s/api/chain/validate | jq '.' 2>/dev/null || cat
echo ""
`, *addr)

	if err := writeScript(filepath.Join(*outDir, "post_all_transactions.sh"), sequentialScript); err != nil {
		log.Fatal("Failed to write sequential script:", err)
	}
	fmt.Printf("Generated: %s\n", filepath.Join(*outDir, "post_all_transactions.sh"))

	tamperScript := fmt.Sprintf(`#!/bin/bash
INDEX=${1:-1}
echo "=== Tampering with block $INDEX ==="
curl -s -X POST %[1]s/api/tamper/$INDEX --max-time 120 | jq '.' 2>/dev/null || cat
echo ""
`, *addr)
	if err := writeScript(filepath.Join(*outDir, "tamper.sh"), tamperScript); err != nil {
		log.Fatal("Failed to write tamper script:", err)
	}
	fmt.Printf("Generated: %s\n", filepath.Join(*outDir, "tamper.sh"))

	fmt.Printf("\nGenerated %d test scripts successfully!\n", len(txs)+2)
	fmt.Println("Usage:")
	fmt.Println("  1. Start your ledger: go run ./cmd/qledger serve")
	fmt.Printf("  2. Run individual tests: ./%s/post_transaction_1.sh\n", *outDir)
	fmt.Printf("  3. Run all sequentially: ./%s/post_all_transactions.sh\n", *outDir)
	fmt.Printf("  4. Attack a block: ./%s/tamper.sh 1\n", *outDir)
}

func writeScript(filename, content string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := os.WriteFile(filename, []byte(content), 0755); err != nil {
		return err
	}

	return nil
}
