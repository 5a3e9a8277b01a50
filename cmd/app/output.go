package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/lebbe/premises/internal/domain"
)

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func printUniverses(items []domain.UniverseInfo) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		kind := "custom"
		if item.Predefined {
			kind = "predefined"
		}
		rows = append(rows, []string{
			item.ID,
			kind,
			strconv.FormatBool(item.Selected),
			strconv.Itoa(item.ConceptCount),
		})
	}
	printTable([]string{"UNIVERSE", "KIND", "SELECTED", "CONCEPTS"}, rows)
}

func printConcepts(items []domain.Concept) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.Label,
			item.UniverseID,
			item.Type,
			formatRef(item.Definition.Genus),
			strconv.Itoa(len(item.Definition.Differentia)),
		})
	}
	printTable([]string{"ID", "LABEL", "UNIVERSE", "TYPE", "GENUS", "DIFFERENTIA"}, rows)
}

func printConcept(item domain.Concept) {
	differentia := make([]string, 0, len(item.Definition.Differentia))
	for _, d := range item.Definition.Differentia {
		differentia = append(differentia, d.ID)
	}
	printKV([][2]string{
		{"id", item.ID},
		{"label", item.Label},
		{"universe", item.UniverseID},
		{"type", item.Type},
		{"definition", item.Definition.Text},
		{"genus", formatRef(item.Definition.Genus)},
		{"differentia", strings.Join(differentia, ",")},
		{"source", item.Definition.Source},
		{"perceptual_roots", strings.Join(item.PerceptualRoots, ",")},
	})
}

func formatRef(ref *domain.ConceptRef) string {
	if ref == nil {
		return "-"
	}
	if ref.Label != "" {
		return fmt.Sprintf("%s (%s)", ref.ID, ref.Label)
	}
	return ref.ID
}

func printCycles(cycles []domain.Cycle) {
	if len(cycles) == 0 {
		fmt.Println("no cycles found")
		return
	}
	for i, cycle := range cycles {
		fmt.Printf("%d: %s\n", i+1, strings.Join(cycle.Labels, " -> "))
	}
}

func printFloating(items []domain.FloatingAbstraction) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.Label,
			string(item.Reason),
			strings.Join(item.ReferencedBy, ","),
		})
	}
	printTable([]string{"ID", "LABEL", "REASON", "REFERENCED_BY"}, rows)
}

func printImportAnalysis(item domain.ImportAnalysis) {
	if item.Error != "" {
		printKV([][2]string{{"success", "false"}, {"error", item.Error}})
		return
	}
	printKV([][2]string{
		{"success", strconv.FormatBool(item.Success)},
		{"total_concepts", strconv.Itoa(item.TotalConcepts)},
		{"new_concepts", strconv.Itoa(item.NewConcepts)},
		{"overwritten_concepts", strconv.Itoa(item.OverwrittenConcepts)},
		{"new_universes", strconv.Itoa(item.NewUniverses)},
		{"overwritten_ids", strings.Join(item.OverwrittenIDs, ",")},
	})
}

func printGraph(graph domain.Graph) {
	nodeRows := make([][]string, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		kind := "concept"
		if n.Virtual {
			kind = string(n.VirtualKind)
		}
		if n.Central {
			kind += " (focal)"
		}
		nodeRows = append(nodeRows, []string{
			n.ID,
			n.Label,
			kind,
			fmt.Sprintf("%.0f,%.0f", n.X, n.Y),
		})
	}
	printTable([]string{"ID", "LABEL", "KIND", "POSITION"}, nodeRows)

	fmt.Println()
	edgeRows := make([][]string, 0, len(graph.Edges))
	for _, e := range graph.Edges {
		edgeRows = append(edgeRows, []string{e.Source, string(e.Relation), e.Target})
	}
	printTable([]string{"FROM", "RELATION", "TO"}, edgeRows)
}
