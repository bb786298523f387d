package model

type System struct {
	Name       string   `json:"name"`
	FullName   string   `json:"full_name"`
	Root       string   `json:"root"`
	Extensions []string `json:"extensions"`
	Platforms  []string `json:"platforms"`
	Theme      string   `json:"theme"`
	Games      int      `json:"games"`
}

type File struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	Path string `json:"path"`
}

type ChildrenResponse struct {
	System string `json:"system"`
	Path   string `json:"path"`
	Sort   string `json:"sort"`
	Files  []File `json:"files"`
}

type Metadata struct {
	System string            `json:"system"`
	ID     string            `json:"id"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields"`
}

type Sort struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
