package application

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/lebbe/premises/internal/domain"
)

// Defaults applied when a view-state key is absent.
const (
	DefaultDepth       = 2
	DefaultNodeSpacing = 20
	DefaultRankSpacing = 150
)

const DefaultDirection = domain.DirectionLR

// DecodeViewState reads a study view state from flat query values.
// Every absent key gets its documented default; the universe default is
// the full available set. The legacy single "concept" key is honored as
// a one-element focal set when "concepts" is missing.
func DecodeViewState(values url.Values, available []string) domain.ViewState {
	state := domain.ViewState{
		Depth:           DefaultDepth,
		Direction:       DefaultDirection,
		NodeSpacing:     DefaultNodeSpacing,
		RankSpacing:     DefaultRankSpacing,
		ShowGenus:       true,
		ShowDifferentia: true,
	}

	state.Focal = splitCSV(values.Get("concepts"))
	if len(state.Focal) == 0 {
		if legacy := strings.TrimSpace(values.Get("concept")); legacy != "" {
			state.Focal = []string{legacy}
		}
	}

	if d, err := strconv.Atoi(values.Get("depth")); err == nil && d >= 1 {
		state.Depth = d
	}
	switch domain.LayoutDirection(values.Get("dir")) {
	case domain.DirectionTB, domain.DirectionBT, domain.DirectionLR, domain.DirectionRL:
		state.Direction = domain.LayoutDirection(values.Get("dir"))
	}
	if n, err := strconv.Atoi(values.Get("nodeSpacing")); err == nil && n >= 0 {
		state.NodeSpacing = n
	}
	if n, err := strconv.Atoi(values.Get("rankSpacing")); err == nil && n >= 0 {
		state.RankSpacing = n
	}
	if b, err := strconv.ParseBool(values.Get("genus")); err == nil {
		state.ShowGenus = b
	}
	if b, err := strconv.ParseBool(values.Get("diff")); err == nil {
		state.ShowDifferentia = b
	}

	state.Universes = splitCSV(values.Get("universes"))
	if len(state.Universes) == 0 {
		state.Universes = append([]string{}, available...)
	}
	return state
}

// EncodeViewState writes the state back to query values, omitting keys
// that hold their default so encoded strings stay short.
func EncodeViewState(state domain.ViewState) url.Values {
	values := url.Values{}
	if len(state.Focal) > 0 {
		values.Set("concepts", strings.Join(state.Focal, ","))
	}
	if state.Depth != DefaultDepth {
		values.Set("depth", strconv.Itoa(state.Depth))
	}
	if state.Direction != DefaultDirection {
		values.Set("dir", string(state.Direction))
	}
	if state.NodeSpacing != DefaultNodeSpacing {
		values.Set("nodeSpacing", strconv.Itoa(state.NodeSpacing))
	}
	if state.RankSpacing != DefaultRankSpacing {
		values.Set("rankSpacing", strconv.Itoa(state.RankSpacing))
	}
	if !state.ShowGenus {
		values.Set("genus", "false")
	}
	if !state.ShowDifferentia {
		values.Set("diff", "false")
	}
	if len(state.Universes) > 0 {
		values.Set("universes", strings.Join(state.Universes, ","))
	}
	return values
}

func splitCSV(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
