package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/cyp0633/libdavdiscover/discover"
)

// outputFormat specifies how to render CLI output.
type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

// parseOutputFormat parses and validates the output format flag.
func parseOutputFormat(s string) (outputFormat, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return outputTable, nil
	case "json":
		return outputJSON, nil
	case "yaml":
		return outputYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: table, json, yaml)", s)
	}
}

// printConfiguration renders the discovery result. Table output leaves
// out the raw trace; json and yaml serialize the whole configuration
// except the password.
func printConfiguration(w io.Writer, format outputFormat, conf *discover.Configuration) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(conf)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(conf)
	default:
		return printTable(w, conf)
	}
}

func printTable(w io.Writer, conf *discover.Configuration) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tPRINCIPAL\tHOME SETS\tCOLLECTIONS")
	printServiceRow(tw, discover.ServiceCalDAV, conf.CalDAV)
	printServiceRow(tw, discover.ServiceCardDAV, conf.CardDAV)
	if err := tw.Flush(); err != nil {
		return err
	}
	printCollections(w, discover.ServiceCalDAV, conf.CalDAV)
	printCollections(w, discover.ServiceCardDAV, conf.CardDAV)
	return nil
}

func printServiceRow(w io.Writer, svc discover.Service, info *discover.ServiceInfo) {
	if info == nil {
		fmt.Fprintf(w, "%s\t-\t-\t-\n", svc)
		return
	}
	fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", svc, orDash(info.Principal), len(info.HomeSets), len(info.Collections))
}

func printCollections(w io.Writer, svc discover.Service, info *discover.ServiceInfo) {
	if info == nil || len(info.Collections) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s collections:\n", svc)
	urls := make([]string, 0, len(info.Collections))
	for u := range info.Collections {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  URL\tNAME\tCOMPONENTS\tACCESS")
	for _, u := range urls {
		ci := info.Collections[u]
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", u, orDash(ci.DisplayName), componentList(ci), accessMode(ci))
	}
	tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func componentList(ci discover.CollectionInfo) string {
	var comps []string
	if ci.SupportsVEVENT {
		comps = append(comps, "VEVENT")
	}
	if ci.SupportsVTODO {
		comps = append(comps, "VTODO")
	}
	if len(comps) == 0 {
		return "-"
	}
	return strings.Join(comps, "+")
}

func accessMode(ci discover.CollectionInfo) string {
	if ci.ReadOnly {
		return "read-only"
	}
	return "read-write"
}
