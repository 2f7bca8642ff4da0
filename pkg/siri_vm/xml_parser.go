package siri_vm

import (
	"encoding/xml"
	"io"

	"golang.org/x/net/html/charset"
)

func ParseXMLFile(reader io.Reader) (*SiriVM, error) {
	siriVM := SiriVM{}

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	if err := d.Decode(&siriVM); err != nil {
		return nil, err
	}

	return &siriVM, nil
}
