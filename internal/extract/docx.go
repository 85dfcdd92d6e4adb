package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// maxDocxParagraphs bounds parsing cost for long documents.
const maxDocxParagraphs = 50

// documentXML mirrors the paragraph/run structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

// appPropsXML mirrors docProps/app.xml, which carries the page count when the
// producing application recorded one.
type appPropsXML struct {
	Pages int `xml:"Pages"`
}

// extractDocx returns the text of the first paragraphs and the page count from
// the document properties, nil when absent.
func extractDocx(content []byte) (string, *int, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to open docx: %w", err)
	}

	text, err := docxBodyText(reader)
	if err != nil {
		return "", nil, err
	}

	return text, docxPageCount(reader), nil
}

func docxBodyText(reader *zip.Reader) (string, error) {
	data, err := readZipFile(reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("docx has no word/document.xml")
	}

	var doc documentXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse document.xml: %w", err)
	}

	paragraphs := doc.Body.Paragraphs
	if len(paragraphs) > maxDocxParagraphs {
		paragraphs = paragraphs[:maxDocxParagraphs]
	}

	var sb strings.Builder
	for _, para := range paragraphs {
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t.Content)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func docxPageCount(reader *zip.Reader) *int {
	data, err := readZipFile(reader, "docProps/app.xml")
	if err != nil || data == nil {
		return nil
	}

	var props appPropsXML
	if err := xml.Unmarshal(data, &props); err != nil || props.Pages <= 0 {
		return nil
	}
	return &props.Pages
}

func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, nil
}
