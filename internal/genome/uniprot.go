package genome

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UniProtResolver maps gene identifiers to UniProt accessions with the
// UniProt ID mapping service and reads exon coordinates from the EBI
// Proteins coordinates API.
type UniProtResolver struct {
	uniprotURL   string
	ebiURL       string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewUniProtResolver creates a resolver. Empty URLs select the public services.
func NewUniProtResolver(uniprotURL, ebiURL string) *UniProtResolver {
	if uniprotURL == "" {
		uniprotURL = "https://rest.uniprot.org"
	}
	if ebiURL == "" {
		ebiURL = "https://www.ebi.ac.uk"
	}
	return &UniProtResolver{
		uniprotURL:   strings.TrimRight(uniprotURL, "/"),
		ebiURL:       strings.TrimRight(ebiURL, "/"),
		pollInterval: 5 * time.Second,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
}

// SetPollInterval sets how often the ID mapping job is polled.
func (r *UniProtResolver) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.pollInterval = d
	}
}

// SetLogger sets the logger for progress messages.
func (r *UniProtResolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// ResolveToAccession submits an ID mapping job from GeneCards to UniProtKB,
// waits for it to finish and returns the first accession.
func (r *UniProtResolver) ResolveToAccession(ctx context.Context, geneID string) (string, error) {
	form := url.Values{}
	form.Set("ids", geneID)
	form.Set("from", "GeneCards")
	form.Set("to", "UniProtKB")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.uniprotURL+"/idmapping/run",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build ID mapping request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var job struct {
		JobID string `json:"jobId"`
	}
	if err := r.doJSON(req, &job); err != nil {
		return "", fmt.Errorf("submit ID mapping for %s: %w", geneID, err)
	}
	if job.JobID == "" {
		return "", fmt.Errorf("submit ID mapping for %s: no job id: %w", geneID, ErrProviderUnavailable)
	}
	r.logger.Debug("ID mapping job submitted", zap.String("gene", geneID), zap.String("job", job.JobID))

	results, err := r.waitForMapping(ctx, job.JobID)
	if err != nil {
		return "", fmt.Errorf("ID mapping for %s: %w", geneID, err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no UniProt accession for %s: %w", geneID, ErrUnknownGene)
	}
	return results[0].To, nil
}

type mappingResult struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// waitForMapping polls the job until the response carries a results field.
func (r *UniProtResolver) waitForMapping(ctx context.Context, jobID string) ([]mappingResult, error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			r.uniprotURL+"/idmapping/results/"+url.PathEscape(jobID), nil)
		if err != nil {
			return nil, fmt.Errorf("build ID mapping results request: %w", err)
		}

		var status struct {
			Results *[]mappingResult `json:"results"`
		}
		if err := r.doJSON(req, &status); err != nil {
			return nil, err
		}
		if status.Results != nil {
			return *status.Results, nil
		}

		r.logger.Debug("waiting for ID mapping results", zap.String("job", jobID))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// coordinatesResponse is the subset of the EBI Proteins coordinates payload we read.
type coordinatesResponse struct {
	GnCoordinate []struct {
		EnsemblGeneID   string `json:"ensemblGeneId"`
		GenomicLocation struct {
			Chromosome string `json:"chromosome"`
			Exon       []struct {
				ID             string `json:"id"`
				GenomeLocation struct {
					Begin struct {
						Position int64 `json:"position"`
					} `json:"begin"`
					End struct {
						Position int64 `json:"position"`
					} `json:"end"`
				} `json:"genomeLocation"`
			} `json:"exon"`
		} `json:"genomicLocation"`
	} `json:"gnCoordinate"`
}

// FetchExonCoordinates returns every exon listed for the accession, in
// response order. Begin/end are passed through untouched so reverse-strand
// exons keep End < Start.
func (r *UniProtResolver) FetchExonCoordinates(ctx context.Context, accession string) ([]ExonLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.ebiURL+"/proteins/api/coordinates/"+url.PathEscape(accession), nil)
	if err != nil {
		return nil, fmt.Errorf("build coordinates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var coords coordinatesResponse
	if err := r.doJSON(req, &coords); err != nil {
		return nil, fmt.Errorf("coordinates for %s: %w", accession, err)
	}

	var exons []ExonLocation
	for _, gene := range coords.GnCoordinate {
		loc := gene.GenomicLocation
		for _, e := range loc.Exon {
			exons = append(exons, ExonLocation{
				ID:         e.ID,
				GeneID:     gene.EnsemblGeneID,
				Chromosome: loc.Chromosome,
				Start:      e.GenomeLocation.Begin.Position,
				End:        e.GenomeLocation.End.Position,
			})
		}
	}
	if len(exons) == 0 {
		return nil, fmt.Errorf("accession %s: %w", accession, ErrNoExons)
	}
	return exons, nil
}

func (r *UniProtResolver) doJSON(req *http.Request, v any) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s: status %d: %s", ErrProviderUnavailable,
			req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrProviderUnavailable, req.URL.Path, err)
	}
	return nil
}
