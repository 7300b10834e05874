package source

import (
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/books"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
)

var (
	// Container form: <verse osisID="Gen.1.1">text</verse>
	osisContainerVerses = xpath.MustCompile(`//*[local-name()='verse'][@osisID and not(@sID) and not(@eID)]`)
	// Milestone form: <verse sID="Gen.1.1" osisID="Gen.1.1"/>text<verse eID="Gen.1.1"/>
	osisMilestones = xpath.MustCompile(`//*[local-name()='verse'][@sID]`)
)

// Elements whose text is not verse content.
var osisSkipped = map[string]bool{
	"note":  true,
	"title": true,
}

// ReadOSIS builds a Dataset from an OSIS XML document. Both the container and
// the milestone verse encodings are accepted. Verses whose book is not in the
// canon are skipped.
func ReadOSIS(r io.Reader) (*Dataset, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "OSIS", Message: "invalid XML", Err: err}
	}

	verses := make(map[string]string)

	for _, n := range xmlquery.QuerySelectorAll(doc, osisContainerVerses) {
		if key, ok := osisKey(n.SelectAttr("osisID")); ok {
			verses[key] = Normalize(collectText(n))
		}
	}

	for _, start := range xmlquery.QuerySelectorAll(doc, osisMilestones) {
		id := start.SelectAttr("osisID")
		if id == "" {
			id = start.SelectAttr("sID")
		}
		key, ok := osisKey(id)
		if !ok {
			continue
		}
		verses[key] = Normalize(milestoneText(start, start.SelectAttr("sID")))
	}

	if len(verses) == 0 {
		return nil, errors.NewParse("OSIS", "", "no verses found")
	}
	return NewDataset(verses), nil
}

// osisKey converts "Gen.1.1" (or the first of a space-separated list) to "genesis-1-1".
func osisKey(osisID string) (string, bool) {
	fields := strings.Fields(osisID)
	if len(fields) == 0 {
		return "", false
	}
	parts := strings.Split(fields[0], ".")
	if len(parts) != 3 {
		return "", false
	}
	book, ok := books.ByOSIS(parts[0])
	if !ok {
		return "", false
	}
	chapter, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", false
	}
	verse, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", false
	}
	return ref.New(book.Slug, chapter, verse).Key(), true
}

func collectText(n *xmlquery.Node) string {
	var sb strings.Builder
	var walk func(*xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case xmlquery.TextNode, xmlquery.CharDataNode:
				sb.WriteString(c.Data)
				sb.WriteByte(' ')
			case xmlquery.ElementNode:
				if !osisSkipped[c.Data] {
					walk(c)
				}
			}
		}
	}
	walk(n)
	return sb.String()
}

// milestoneText gathers the text that follows start in document order up to
// the matching eID milestone (or the next verse start).
func milestoneText(start *xmlquery.Node, sID string) string {
	var sb strings.Builder

	n := nextInDocument(start, false)
	for n != nil {
		if n.Type == xmlquery.ElementNode && n.Data == "verse" {
			if n.SelectAttr("eID") == sID || n.SelectAttr("sID") != "" {
				break
			}
		}
		skip := false
		switch n.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		case xmlquery.ElementNode:
			skip = osisSkipped[n.Data]
		}
		n = nextInDocument(n, skip)
	}
	return sb.String()
}

// nextInDocument returns the node after n in pre-order. With skipChildren the
// subtree of n is not entered.
func nextInDocument(n *xmlquery.Node, skipChildren bool) *xmlquery.Node {
	if !skipChildren && n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}
