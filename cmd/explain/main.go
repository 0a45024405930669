package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"narrativelens/internal/config"
	"narrativelens/pkg/llm"
	"narrativelens/pkg/sse"
)

func main() {
	godotenv.Load()

	apiURL := flag.String("api", envOr("NARRATIVELENS_API_URL", "http://localhost:8080"), "API base URL")
	kind := flag.String("type", llm.ExplainGraphNode, "explanation type")
	narrativeID := flag.String("narrative", "", "narrative id")
	edgeID := flag.String("edge", "", "belief edge id")
	ticker := flag.String("ticker", "", "asset ticker")
	extra := flag.String("context", "", "extra context")
	flag.Parse()

	level, err := config.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(config.NewLogger(level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := llm.ExplainRequest{
		Type:        *kind,
		NarrativeID: *narrativeID,
		EdgeID:      *edgeID,
		AssetTicker: *ticker,
		Context:     *extra,
	}

	text, err := explain(ctx, http.DefaultClient, *apiURL, req, os.Stdout)
	fmt.Println()
	if err != nil {
		log.Fatalf("error streaming explanation: %v", err)
	}
	slog.Debug("explanation complete", "chars", len(text))
}

// explain posts req and copies each delta to out as it arrives. It returns
// the reassembled text, which is partial when the stream breaks.
func explain(ctx context.Context, client *http.Client, apiURL string, req llm.ExplainRequest, out io.Writer) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiURL, "/")+"/explain", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
	}

	reader := sse.NewReader(resp.Body)
	reader.OnDelta(func(delta, _ string) {
		fmt.Fprint(out, delta)
	})
	return reader.ReadAll()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
