// Package document assembles the exported word-processing package and
// post-processes it before download.
package document

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
	"github.com/gomutex/godocx/wml/stypes"
	"github.com/samber/lo"
	"github.com/samber/oops"
	articleDomain "github.com/wemprss/article-exporter/internal/modules/article/domain"
	exportDomain "github.com/wemprss/article-exporter/internal/modules/export/domain"
)

const (
	// ContentType is the MIME type of the rendered package.
	ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// ProductName is recorded as the package author and last editor.
	ProductName = "WeRSS"
	// TitleLabel prefixes the package title; the render date follows it.
	TitleLabel = "星火选题库"
	// Typeface is the default font for every script.
	Typeface = "微软雅黑"
	// LinkColor is the hex run color of article links.
	LinkColor = "0000FF"

	// TimeLayout formats publish times under each title.
	TimeLayout = "2006-01-02 15:04:05"

	fontSizeHalfPoints = 21  // 10.5pt
	spacingAfterTwips  = 120 // 6pt
	singleLineTwips    = 240
	marginTwips        = 720 // 0.5in
	compatibilityMode  = 15

	corePropsPart    = "docProps/core.xml"
	settingsPart     = "word/settings.xml"
	relThumbnail     = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail"
	w3cdtf           = "2006-01-02T15:04:05Z"
	w3cdtfSchemaType = "dcterms:W3CDTF"
)

var compatModePattern = regexp.MustCompile(`(<w:compatSetting w:name="compatibilityMode"[^>]*w:val=")\d+(")`)

// Renderer turns export entries into a .docx package.
type Renderer struct {
	now func() time.Time
}

// NewRenderer returns a renderer stamping packages with the wall clock.
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// WithClock returns a renderer reading the current instant from now.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	return &Renderer{now: now}
}

// Render writes a complete package for entries, in the given order, to w.
// The embedded thumbnail part of the base template is left in place and
// unreferenced; StripThumbnail removes it.
func (r *Renderer) Render(w io.Writer, entries []*articleDomain.Entry) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return oops.With("context", "failed to load base document").Wrap(err)
	}

	applyDefaults(doc)
	applyMargins(doc)
	doc.RootRels.Relationships = lo.Reject(doc.RootRels.Relationships, func(rel *docx.Relationship, _ int) bool {
		return rel.Type == relThumbnail
	})

	for _, e := range entries {
		doc.AddEmptyParagraph().
			AddText(fmt.Sprintf("%s (%s)", e.Article.Title, e.Feed.MPName)).
			Bold(true)
		doc.AddParagraph(FormatPublishTime(e.Article.PublishTime))
		doc.AddEmptyParagraph().
			AddLink(e.Article.URL, e.Article.URL).
			Color(LinkColor).
			Underline(stypes.UnderlineSingle).
			Font(Typeface)
	}

	if err := setCoreProperties(doc, r.now()); err != nil {
		return err
	}
	if err := setCompatibilityMode(doc); err != nil {
		return err
	}

	if err := doc.Write(w); err != nil {
		return oops.With("context", "failed to write document").Wrap(err)
	}
	return nil
}

// FormatPublishTime renders epoch seconds in the display zone.
func FormatPublishTime(epoch int64) string {
	return time.Unix(epoch, 0).In(exportDomain.DisplayZone).Format(TimeLayout)
}

func applyDefaults(doc *docx.RootDoc) {
	doc.DocStyles.DocDefaults = &ctypes.DocDefault{
		RunProp: &ctypes.RunPropDefault{
			RunProp: &ctypes.RunProperty{
				Fonts: &ctypes.RunFonts{
					Ascii:    Typeface,
					HAnsi:    Typeface,
					EastAsia: Typeface,
					CS:       Typeface,
				},
				Size:   ctypes.NewFontSize(fontSizeHalfPoints),
				SizeCs: ctypes.NewFontSizeCS(fontSizeHalfPoints),
			},
		},
		ParaProp: &ctypes.ParaPropDefault{
			ParaProp: &ctypes.ParagraphProp{
				Spacing: &ctypes.Spacing{
					Before:   lo.ToPtr(uint64(0)),
					After:    lo.ToPtr(uint64(spacingAfterTwips)),
					Line:     lo.ToPtr(singleLineTwips),
					LineRule: lo.ToPtr(stypes.LineSpacingRuleAuto),
				},
				Indent: &ctypes.Indent{
					Left:      lo.ToPtr(0),
					FirstLine: lo.ToPtr(uint64(0)),
				},
			},
		},
	}
}

func applyMargins(doc *docx.RootDoc) {
	body := doc.Document.Body
	if body.SectPr == nil {
		body.SectPr = ctypes.NewSectionProper()
	}
	if body.SectPr.PageMargin == nil {
		body.SectPr.PageMargin = &ctypes.PageMargin{}
	}
	margin := body.SectPr.PageMargin
	margin.Top = lo.ToPtr(marginTwips)
	margin.Right = lo.ToPtr(marginTwips)
	margin.Bottom = lo.ToPtr(marginTwips)
	margin.Left = lo.ToPtr(marginTwips)
}

type w3cdtfTime struct {
	Type  string `xml:"xsi:type,attr"`
	Value string `xml:",chardata"`
}

type coreProperties struct {
	XMLName        xml.Name   `xml:"cp:coreProperties"`
	NSCp           string     `xml:"xmlns:cp,attr"`
	NSDc           string     `xml:"xmlns:dc,attr"`
	NSDcterms      string     `xml:"xmlns:dcterms,attr"`
	NSDcmitype     string     `xml:"xmlns:dcmitype,attr"`
	NSXsi          string     `xml:"xmlns:xsi,attr"`
	Title          string     `xml:"dc:title"`
	Creator        string     `xml:"dc:creator"`
	LastModifiedBy string     `xml:"cp:lastModifiedBy"`
	Revision       int        `xml:"cp:revision"`
	Created        w3cdtfTime `xml:"dcterms:created"`
	Modified       w3cdtfTime `xml:"dcterms:modified"`
}

// setCoreProperties replaces the template's core part; the library only
// reads it.
func setCoreProperties(doc *docx.RootDoc, now time.Time) error {
	stamp := now.UTC().Format(w3cdtf)
	props := coreProperties{
		NSCp:           "http://schemas.openxmlformats.org/package/2006/metadata/core-properties",
		NSDc:           "http://purl.org/dc/elements/1.1/",
		NSDcterms:      "http://purl.org/dc/terms/",
		NSDcmitype:     "http://purl.org/dc/dcmitype/",
		NSXsi:          "http://www.w3.org/2001/XMLSchema-instance",
		Title:          TitleLabel + " " + now.In(exportDomain.DisplayZone).Format("2006-01-02"),
		Creator:        ProductName,
		LastModifiedBy: ProductName,
		Revision:       1,
		Created:        w3cdtfTime{Type: w3cdtfSchemaType, Value: stamp},
		Modified:       w3cdtfTime{Type: w3cdtfSchemaType, Value: stamp},
	}

	body, err := xml.Marshal(props)
	if err != nil {
		return oops.With("part", corePropsPart).Wrap(err)
	}
	doc.FileMap.Store(corePropsPart, append([]byte(xml.Header), body...))
	return nil
}

func setCompatibilityMode(doc *docx.RootDoc) error {
	raw, ok := doc.FileMap.Load(settingsPart)
	if !ok {
		return oops.With("part", settingsPart).New("settings part missing from base document")
	}
	settings, _ := raw.([]byte)
	if !compatModePattern.Match(settings) {
		return oops.With("part", settingsPart).New("compatibility mode setting missing from base document")
	}
	doc.FileMap.Store(settingsPart, compatModePattern.ReplaceAll(settings, []byte(fmt.Sprintf("${1}%d${2}", compatibilityMode))))
	return nil
}
