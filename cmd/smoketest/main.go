// Command smoketest posts a canned lead to a running instance and
// reports the outcome. Use it after a deploy to confirm the contact
// pipeline end to end.
//
// Usage:
//
//	go run ./cmd/smoketest --api=http://localhost:8080 [--spam]
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	api := flag.String("api", "http://localhost:8080", "base URL of the lead service")
	spam := flag.Bool("spam", false, "fill the honeypot to exercise the spam gate")
	flag.Parse()

	payload := map[string]string{
		"name":        "Smoke Test",
		"email":       "smoketest@apexremodeling.com",
		"phone":       "9495550100",
		"zipCode":     "92614",
		"projectType": "other",
		"budget":      "under-10k",
		"message":     "Automated post-deploy smoke test. Safe to ignore.",
		"honeypot":    "",
	}
	if *spam {
		payload["honeypot"] = "http://spam.example"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal payload: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	start := time.Now()
	resp, err := client.Post(*api+"/api/contact", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Fprintf(os.Stderr, "decode response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("status=%d success=%v elapsed=%s\n", resp.StatusCode, result.Success, time.Since(start).Round(time.Millisecond))
	if result.Error != "" {
		fmt.Printf("error=%q\n", result.Error)
	}

	if resp.StatusCode != http.StatusOK || !result.Success {
		os.Exit(1)
	}
}
