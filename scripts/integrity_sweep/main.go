package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type artifact struct {
	StorageKey   string `json:"storageKey"`
	CaseID       string `json:"caseId"`
	DigestSHA256 string `json:"digestSha256"`
	SizeBytes    int64  `json:"sizeBytes"`
	IsDeleted    bool   `json:"isDeleted"`
}

type listEnvelope struct {
	Data       []artifact `json:"data"`
	Pagination struct {
		Total  int64 `json:"total"`
		Limit  int   `json:"limit"`
		Offset int   `json:"offset"`
	} `json:"pagination"`
}

type sweepResult struct {
	Artifact artifact
	Digest   string
	Match    bool
	Error    error
	Duration time.Duration
}

func main() {
	var (
		base    string
		token   string
		caseID  string
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", os.Getenv("SWEEP_TOKEN"), "Bearer token with read access")
	flag.StringVar(&caseID, "case", "", "Case identifier to sweep")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	if caseID == "" {
		log.Fatal("missing required -case flag")
	}
	if token == "" {
		log.Fatal("missing token: pass -token or set SWEEP_TOKEN")
	}

	client := &http.Client{Timeout: timeout}

	artifacts, err := listCase(client, base, token, caseID)
	if err != nil {
		log.Fatalf("failed to list case: %v", err)
	}

	var results []sweepResult
	violations := 0
	for _, a := range artifacts {
		if a.IsDeleted {
			continue
		}
		res := sweepArtifact(client, base, token, a)
		if res.Error != nil || !res.Match {
			violations++
		}
		results = append(results, res)
	}

	printReport(caseID, results)

	fmt.Printf("Swept: %d, Violations: %d\n", len(results), violations)
	if violations > 0 {
		os.Exit(1)
	}
}

func listCase(client *http.Client, base, token, caseID string) ([]artifact, error) {
	var all []artifact
	offset := 0
	for {
		q := url.Values{}
		q.Set("caseId", caseID)
		q.Set("limit", "200")
		q.Set("offset", fmt.Sprintf("%d", offset))

		var env listEnvelope
		if err := getJSON(client, base, token, "/api/v1/evidence?"+q.Encode(), &env); err != nil {
			return nil, err
		}
		all = append(all, env.Data...)
		offset += len(env.Data)
		if len(env.Data) == 0 || int64(offset) >= env.Pagination.Total {
			return all, nil
		}
	}
}

func sweepArtifact(client *http.Client, base, token string, a artifact) sweepResult {
	res := sweepResult{Artifact: a}

	req, err := newRequest(base, token, "/api/v1/evidence/download/"+a.StorageKey)
	if err != nil {
		res.Error = err
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		res.Error = fmt.Errorf("unexpected status %d", resp.StatusCode)
		return res
	}

	h := sha256.New()
	n, err := io.Copy(h, resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read body: %w", err)
		return res
	}
	if n != a.SizeBytes {
		res.Error = fmt.Errorf("size mismatch: got %d, recorded %d", n, a.SizeBytes)
		return res
	}

	res.Digest = hex.EncodeToString(h.Sum(nil))
	res.Match = res.Digest == a.DigestSHA256
	return res
}

func getJSON(client *http.Client, base, token, path string, out interface{}) error {
	req, err := newRequest(base, token, path)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func newRequest(base, token, path string) (*http.Request, error) {
	if base == "" {
		return nil, errors.New("empty base URL")
	}
	full := strings.TrimRight(base, "/") + path
	req, err := http.NewRequest(http.MethodGet, full, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func printReport(caseID string, results []sweepResult) {
	fmt.Printf("Integrity Sweep Report: %s\n", caseID)
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.Match {
			status = "VIOLATION"
		}
		fmt.Printf("[%s] %s (%s)\n", status, res.Artifact.StorageKey, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else if !res.Match {
			fmt.Printf("  Recorded: %s\n", res.Artifact.DigestSHA256)
			fmt.Printf("  Computed: %s\n", res.Digest)
		}
	}
}
