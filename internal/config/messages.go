package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Messages are the user-facing replies to a submission
type Messages struct {
	InvalidData     string `json:"invalid_data"`
	ProblemNotFound string `json:"problem_not_found"`
	Success         string `json:"success"`
	Forbidden       string `json:"forbidden"`
	Failed          string `json:"failed"`
}

// DefaultMessages returns the Vietnamese messages shown by the judge UI
func DefaultMessages() Messages {
	return Messages{
		InvalidData:     "Dữ liệu không hợp lệ!",
		ProblemNotFound: "Không tìm thấy bài",
		Success:         "Nạp bài thành công!",
		Forbidden:       "Không thể nạp bài cho người khác!",
		Failed:          "Nạp bài thất bại!",
	}
}

// LoadMessages overlays the JSON object in path onto the defaults.
// An empty path returns the defaults.
func LoadMessages(path string) (Messages, error) {
	msgs := DefaultMessages()
	if path == "" {
		return msgs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Messages{}, fmt.Errorf("read messages: %w", err)
	}

	var overrides Messages
	if err := json.Unmarshal(data, &overrides); err != nil {
		return Messages{}, fmt.Errorf("parse messages %s: %w", path, err)
	}
	overlay(&msgs.InvalidData, overrides.InvalidData)
	overlay(&msgs.ProblemNotFound, overrides.ProblemNotFound)
	overlay(&msgs.Success, overrides.Success)
	overlay(&msgs.Forbidden, overrides.Forbidden)
	overlay(&msgs.Failed, overrides.Failed)
	return msgs, nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
