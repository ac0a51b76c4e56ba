package models

// Memory is a single record from the memory archive (memories.json).
// The archive is authored by hand, so every field except FilePath is optional.
type Memory struct {
	Title       string   `json:"title,omitempty"`
	Date        string   `json:"date,omitempty"`
	Description string   `json:"description,omitempty"`
	FilePath    string   `json:"file_path"`
	Tags        []string `json:"tags,omitempty"`
}

// ChatMessage is one turn of a conversation with the ghost writer.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
