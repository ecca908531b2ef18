package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// containerPath is the well-known location of container.xml.
const containerPath = "META-INF/container.xml"

// opfMediaType marks the rootfile holding the package document.
const opfMediaType = "application/oebps-package+xml"

// containerXML models META-INF/container.xml, used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// opfPackage models the parts of the OPF package document the
// converter needs: metadata, the manifest and the spine.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Titles    []string `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators  []string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages []string `xml:"http://purl.org/dc/elements/1.1/ language"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfSpine struct {
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// parseContainer returns the OPF path declared in container.xml,
// falling back to the first .opf entry in the archive.
func parseContainer(zr *zip.Reader) (string, error) {
	if f := findFile(zr, containerPath); f != nil {
		data, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("reading container.xml: %w", err)
		}
		var c containerXML
		if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
			return "", fmt.Errorf("parsing container.xml: %w", err)
		}
		for _, rf := range c.RootFiles {
			if strings.EqualFold(strings.TrimSpace(rf.MediaType), opfMediaType) && rf.FullPath != "" {
				return rf.FullPath, nil
			}
		}
		for _, rf := range c.RootFiles {
			if rf.FullPath != "" {
				return rf.FullPath, nil
			}
		}
	}

	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("%w: no OPF package document", ErrInvalidEPUB)
}

// parseOPF decodes the package document.
func parseOPF(data []byte) (*opfPackage, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(preprocessEntities(stripBOM(data)), &pkg); err != nil {
		return nil, fmt.Errorf("parsing OPF: %w", err)
	}
	return &pkg, nil
}

// findFile looks up a ZIP entry case-insensitively.
func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// readZipFile reads one ZIP entry fully.
func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// stripBOM removes a UTF-8 byte order mark, which encoding/xml rejects.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}
