package subtitle

import "encoding/xml"

// parseSRV3XML unmarshals a srv3/timedtext XML payload's <p> cue elements.
func parseSRV3XML(data []byte) ([]srv3Text, error) {
	var doc srv3Transcript
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Texts, nil
}
