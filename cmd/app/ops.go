package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lebbe/premises/internal/domain"
)

func doUniversesList(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "universes.list", map[string]any{}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/universes", nil, out)
}

func doUniversesSelect(ctx context.Context, cfg cliConfig, universes []string) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "universes.select", map[string]any{"universes": universes}, nil)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPut, "/api/universes/selection", map[string]any{"universes": universes}, nil)
}

func doConceptsList(ctx context.Context, cfg cliConfig, q, universes string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "concepts.list", map[string]any{"q": q, "universes": splitCSV(universes)}, out)
	}
	params := url.Values{}
	if q != "" {
		params.Set("q", q)
	}
	if universes != "" {
		params.Set("universes", universes)
	}
	path := "/api/concepts"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, path, nil, out)
}

func doConceptsGet(ctx context.Context, cfg cliConfig, id string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "concepts.get", map[string]any{"id": id}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/concepts/"+url.PathEscape(id), nil, out)
}

func doConceptsSave(ctx context.Context, cfg cliConfig, previousID string, concept domain.Concept, out any) error {
	payload := map[string]any{"previousId": previousID, "concept": concept}
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "concepts.save", payload, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/concepts", payload, out)
}

func doConceptsClear(ctx context.Context, cfg cliConfig) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "concepts.clear", map[string]any{}, nil)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodDelete, "/api/concepts", nil, nil)
}

func doGraphBuild(ctx context.Context, cfg cliConfig, state domain.ViewState, hierarchy, autoLayout bool, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "graph.build", map[string]any{
			"state":      state,
			"hierarchy":  hierarchy,
			"autoLayout": autoLayout,
		}, out)
	}
	params := url.Values{}
	params.Set("concepts", strings.Join(state.Focal, ","))
	params.Set("depth", strconv.Itoa(state.Depth))
	params.Set("dir", string(state.Direction))
	params.Set("nodeSpacing", strconv.Itoa(state.NodeSpacing))
	params.Set("rankSpacing", strconv.Itoa(state.RankSpacing))
	params.Set("genus", strconv.FormatBool(state.ShowGenus))
	params.Set("diff", strconv.FormatBool(state.ShowDifferentia))
	if len(state.Universes) > 0 {
		params.Set("universes", strings.Join(state.Universes, ","))
	}
	if hierarchy {
		params.Set("layout", "hierarchy")
	}
	if !autoLayout {
		params.Set("auto", "false")
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/graph?"+params.Encode(), nil, out)
}

func doCycles(ctx context.Context, cfg cliConfig, concepts, universes string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "analysis.cycles", map[string]any{
			"concepts":  splitCSV(concepts),
			"universes": splitCSV(universes),
		}, out)
	}
	params := url.Values{}
	params.Set("concepts", concepts)
	if universes != "" {
		params.Set("universes", universes)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/analysis/cycles?"+params.Encode(), nil, out)
}

func doFloating(ctx context.Context, cfg cliConfig, concepts, universes string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "analysis.floating", map[string]any{
			"concepts":  splitCSV(concepts),
			"universes": splitCSV(universes),
		}, out)
	}
	params := url.Values{}
	params.Set("concepts", concepts)
	if universes != "" {
		params.Set("universes", universes)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/analysis/floating?"+params.Encode(), nil, out)
}

func doImport(ctx context.Context, cfg cliConfig, data []byte, apply bool, out any) error {
	if cfg.Transport == "uds" {
		method := "import.analyze"
		if apply {
			method = "import.apply"
		}
		return newRPCClient(cfg.Socket).call(ctx, method, map[string]any{"data": json.RawMessage(data)}, out)
	}
	path := "/api/import/analyze"
	if apply {
		path = "/api/import"
	}
	return newAPIClient(cfg.Server).requestRaw(ctx, http.MethodPost, path, data, out)
}

func doExport(ctx context.Context, cfg cliConfig, universes string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "export.run", map[string]any{"universes": splitCSV(universes)}, out)
	}
	path := "/api/export"
	if universes != "" {
		path += "?universes=" + url.QueryEscape(universes)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, path, nil, out)
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
