package rulesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cartrules/internal/rules"
	"cartrules/pkg/logging"
)

// Source fetches the rule set for a shop from wherever rules are authored.
type Source interface {
	Fetch(ctx context.Context, shop string) ([]rules.Rule, error)
}

// HTTPSource reads rules from the rule backend's read endpoint,
// GET {baseURL}/api/cart-rules?shop={shop}.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource creates an HTTP rule source. A zero timeout defaults to 10 seconds.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rulesResponse struct {
	Rules []json.RawMessage `json:"rules"`
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, shop string) ([]rules.Rule, error) {
	endpoint := s.baseURL + "/api/cart-rules?shop=" + url.QueryEscape(shop)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rule endpoint returned status %d", resp.StatusCode)
	}

	var body rulesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	out := make([]rules.Rule, 0, len(body.Rules))
	for i, raw := range body.Rules {
		var r rules.Rule
		if err := json.Unmarshal(raw, &r); err != nil {
			logging.Warn("RuleSource", "Skipping malformed rule #%d for %s: %v", i, shop, err)
			recordSkipped()
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// FileSource reads rules from YAML files in a directory. Each file holds either
// a single rule or a list of rules. Files are read in name order so declaration
// order is stable.
type FileSource struct {
	dir string
}

// NewFileSource creates a directory-backed rule source.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Dir returns the watched directory.
func (s *FileSource) Dir() string {
	return s.dir
}

// Fetch implements Source. The shop argument is ignored; a directory serves one shop.
func (s *FileSource) Fetch(ctx context.Context, shop string) ([]rules.Rule, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule directory %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var out []rules.Rule
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, name)
		fileRules, err := readRuleFile(path)
		if err != nil {
			// One broken file must not hide the others.
			logging.Warn("RuleSource", "Skipping rule file %s: %v", path, err)
			continue
		}
		out = append(out, fileRules...)
	}
	return out, nil
}

func readRuleFile(path string) ([]rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		list := make([]rules.Rule, 0, len(root.Content))
		for _, item := range root.Content {
			var r rules.Rule
			if err := item.Decode(&r); err != nil {
				logging.Warn("RuleSource", "Skipping malformed rule at %s:%d: %v", path, item.Line, err)
				recordSkipped()
				continue
			}
			list = append(list, r)
		}
		return list, nil
	}

	var single rules.Rule
	if err := root.Decode(&single); err != nil {
		return nil, err
	}
	return []rules.Rule{single}, nil
}

// isYAMLFile checks if a file path is a YAML file.
func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
