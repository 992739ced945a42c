package telephony

import "encoding/json"

// DispatchMetadata is the JSON payload carried by a dispatch job and handed
// to the worker verbatim. Field names are part of the worker contract.
type DispatchMetadata struct {
	PhoneNumber        string `json:"phone_number,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

func (m DispatchMetadata) Encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeDispatchMetadata parses job metadata. An empty payload decodes to
// the zero value; inbound jobs carry no metadata.
func DecodeDispatchMetadata(raw string) (DispatchMetadata, error) {
	var m DispatchMetadata
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return DispatchMetadata{}, err
	}
	return m, nil
}
