package dav

import (
	"io"
	"net/url"
	"strings"

	"github.com/beevik/etree"
)

// Depth values for PROPFIND requests.
const (
	DepthZero = 0
	DepthOne  = 1
)

// Resource is one response of a multistatus document: its location
// resolved to an absolute URL and its successfully reported properties.
type Resource struct {
	Location *url.URL
	Props    PropSet
}

// buildPropfind renders the request body asking for the given
// properties.
func buildPropfind(names []PropName) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("d:propfind")
	for _, ns := range namespaces {
		root.CreateAttr("xmlns:"+ns.prefix, ns.uri)
	}
	prop := root.CreateElement("d:prop")
	for _, name := range names {
		prefix := propPrefix[name]
		if prefix == "" {
			prefix = "d"
		}
		prop.CreateElement(prefix + ":" + string(name))
	}
	return doc.WriteToBytes()
}

// parseMultistatus decodes a 207 response body. Hrefs are resolved
// against base, the URL the response finally came from. Responses
// without an href and propstats without a 2xx status are skipped.
func parseMultistatus(body io.Reader, base *url.URL) ([]Resource, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return nil, &ProtocolError{URL: base.String(), Reason: "invalid XML", Err: err}
	}
	root := doc.Root()
	if root == nil || strings.ToLower(root.Tag) != "multistatus" {
		return nil, &ProtocolError{URL: base.String(), Reason: "root element is not multistatus"}
	}
	var resources []Resource
	for _, respElem := range root.SelectElements("response") {
		hrefElem := respElem.SelectElement("href")
		if hrefElem == nil {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(hrefElem.Text()))
		if err != nil {
			continue
		}
		res := Resource{Location: base.ResolveReference(ref)}
		for _, propstat := range respElem.SelectElements("propstat") {
			status := propstat.SelectElement("status")
			if status == nil || !strings.Contains(status.Text(), "200") {
				continue
			}
			prop := propstat.SelectElement("prop")
			if prop == nil {
				continue
			}
			for _, elem := range prop.ChildElements() {
				res.Props.decodeElement(elem)
			}
		}
		resources = append(resources, res)
	}
	return resources, nil
}
