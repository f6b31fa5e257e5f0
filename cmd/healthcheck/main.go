package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/safetyfirst/backend/internal/handlers"
)

func main() {
	url := "http://localhost:8080/health"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	fmt.Printf("🔍 Testing health endpoint: %s\n", url)

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("❌ Error connecting to health endpoint: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("❌ Error reading response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("📊 Response Status: %s\n", resp.Status)

	var health handlers.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		fmt.Printf("❌ Error parsing JSON response: %v\n", err)
		fmt.Printf("📄 Response Body: %s\n", string(body))
		os.Exit(1)
	}

	names := make([]string, 0, len(health.Services))
	for name := range health.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := resp.StatusCode != http.StatusOK || health.Status != "ok"
	for _, name := range names {
		st := health.Services[name]
		if st.Status != "ok" {
			failed = true
			fmt.Printf("❌ %s: %s %s\n", name, st.Status, st.Error)
			continue
		}
		fmt.Printf("   %s: ok\n", name)
	}

	if failed {
		fmt.Printf("❌ Health check failed (status %q, code %d)\n", health.Status, resp.StatusCode)
		os.Exit(1)
	}

	fmt.Printf("✅ Health check passed!\n")
	fmt.Printf("   Version: %s\n", health.Version)
	fmt.Printf("   Timestamp: %s\n", health.Timestamp)
}
