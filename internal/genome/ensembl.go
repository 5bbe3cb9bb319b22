package genome

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EnsemblProvider fetches reference DNA from the Ensembl REST API.
type EnsemblProvider struct {
	baseURL    string
	species    string
	assembly   string
	httpClient *http.Client
}

// NewEnsemblProvider creates a sequence provider for the given assembly.
// assembly should be "GRCh37" or "GRCh38"; baseURL may be empty to use the
// public server for that assembly.
func NewEnsemblProvider(baseURL, species, assembly string) *EnsemblProvider {
	if baseURL == "" {
		baseURL = "https://rest.ensembl.org"
		if assembly == "GRCh37" {
			baseURL = "https://grch37.rest.ensembl.org"
		}
	}
	if species == "" {
		species = "human"
	}

	return &EnsemblProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		species:  species,
		assembly: assembly,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchSequence returns the forward-strand bases of chrom:start..end.
func (p *EnsemblProvider) FetchSequence(ctx context.Context, chrom string, start, end int64) (string, error) {
	if start <= 0 || end < start {
		return "", fmt.Errorf("%s:%d..%d: %w", chrom, start, end, ErrOutOfRangeCoordinate)
	}

	url := fmt.Sprintf("%s/sequence/region/%s/%s:%d..%d:1?coord_system_version=%s",
		p.baseURL, p.species, chrom, start, end, p.assembly)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build Ensembl request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Ensembl %s:%d..%d: %w: %v", chrom, start, end, ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Ensembl %s:%d..%d: %w: %s", chrom, start, end,
			ErrOutOfRangeCoordinate, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Ensembl %s:%d..%d: %w: status %d: %s", chrom, start, end,
			ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var seqResp struct {
		Seq string `json:"seq"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&seqResp); err != nil {
		return "", fmt.Errorf("decode Ensembl response: %w: %v", ErrProviderUnavailable, err)
	}
	if seqResp.Seq == "" {
		return "", fmt.Errorf("Ensembl %s:%d..%d: empty sequence: %w", chrom, start, end, ErrProviderUnavailable)
	}

	return seqResp.Seq, nil
}
