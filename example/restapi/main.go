// Example: Using the SQL gateway HTTP API
//
// Start the gateway with a DuckDB default profile:
//
//	SQLGATEWAY_PROPERTIES_FILE= \
//	SQLGATEWAY_PROP_default__driver=duckdb \
//	SQLGATEWAY_PROP_default__url=jdbc:duckdb: \
//	go run ./cmd/server
//
// Then run this example:
//
//	go run ./example/restapi
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/nnnkkk7/sqlgateway/server/types"
)

var baseURL = getBaseURL()

func getBaseURL() string {
	host := os.Getenv("SQLGATEWAY_HOST")
	if host == "" {
		host = "localhost:8080"
	}
	return fmt.Sprintf("http://%s/api/v1", host)
}

func main() {
	fmt.Println("=== SQL Gateway REST API Example ===")

	// Example 1: List profiles
	fmt.Println("\n1. Listing connection profiles...")
	var profiles types.ProfileListResponse
	if err := getJSON("/profiles", &profiles); err != nil {
		log.Fatalf("Failed to list profiles: %v", err)
	}
	fmt.Printf("   Profiles: %v (max rows %d)\n", profiles.Profiles, profiles.MaxRows)

	// Example 2: Execute statements under one execution id
	fmt.Println("\n2. Executing statements...")
	for _, text := range []string{
		"CREATE TABLE IF NOT EXISTS products (id INTEGER, name VARCHAR, category VARCHAR)",
		"INSERT INTO products VALUES (1, 'Laptop', 'Electronics'), (2, 'Desk Chair', 'Furniture')",
		"SELECT category, COUNT(*) AS total FROM products GROUP BY category ORDER BY category",
	} {
		resp, err := execute("example-1", text)
		if err != nil {
			log.Fatalf("Execution failed: %v", err)
		}
		printResponse(resp)
	}

	// Example 3: Cancel a long running execution
	fmt.Println("\n3. Canceling a running execution...")
	done := make(chan *types.ExecutionResponse, 1)
	go func() {
		resp, err := execute("example-2", "SELECT COUNT(*) FROM range(10000000000)")
		if err != nil {
			log.Printf("Execution failed: %v", err)
		}
		done <- resp
	}()
	time.Sleep(500 * time.Millisecond)

	var canceled types.CancelResponse
	if err := postJSON("/executions/example-2/cancel", nil, &canceled); err != nil {
		log.Fatalf("Cancel failed: %v", err)
	}
	fmt.Printf("   Cancel delivered: %v\n", canceled.Canceled)
	if resp := <-done; resp != nil {
		printResponse(resp)
	}

	// Example 4: List and release bindings
	fmt.Println("\n4. Listing bindings...")
	var bindings types.BindingListResponse
	if err := getJSON("/executions", &bindings); err != nil {
		log.Fatalf("Failed to list bindings: %v", err)
	}
	for _, b := range bindings.Bindings {
		fmt.Printf("   - %s on %s since %s\n", b.ExecutionID, b.Profile, b.BoundOn)
		if err := release(b.ExecutionID); err != nil {
			log.Printf("Failed to release %s: %v", b.ExecutionID, err)
		}
	}

	fmt.Println("\n=== Example completed successfully! ===")
}

func execute(executionID, text string) (*types.ExecutionResponse, error) {
	var resp types.ExecutionResponse
	req := types.ExecuteRequest{ExecutionID: executionID, Text: text}
	if err := postJSON("/executions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func release(executionID string) error {
	req, err := http.NewRequest(http.MethodDelete, baseURL+"/executions/"+executionID, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func postJSON(path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	resp, err := http.Post(baseURL+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return decodeResponse(resp, out)
}

func getJSON(path string, out any) error {
	resp, err := http.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w, body: %s", err, string(respBody))
	}
	return nil
}

func printResponse(resp *types.ExecutionResponse) {
	if !resp.Success {
		fmt.Printf("   %s: %s\n", resp.Code, resp.Message)
		return
	}
	if resp.Data == nil {
		fmt.Printf("   %s", resp.Message)
		return
	}

	fmt.Printf("   Columns: %v\n", resp.Data.Columns)
	for i, row := range resp.Data.RowSet {
		fmt.Printf("   Row %d: %v\n", i+1, row)
	}
}
