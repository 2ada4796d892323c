package types

// --- JSON structures for host communication ---

// Commands understood by the host request handler.
const (
	CommandCreateEmpty = "create_empty"
	CommandInit        = "init"
	CommandImport      = "import"
	CommandExport      = "export"
	CommandExecute     = "execute"
	CommandVacuum      = "vacuum"
	CommandQuery       = "query"
	CommandListTables  = "list_tables"
	CommandSchema      = "schema"
	CommandCountRows   = "count_rows"
)

// Request defines the structure for requests sent to the host. Image travels
// as base64 (encoding/json's []byte encoding).
type Request struct {
	Command string `json:"command"`
	Image   []byte `json:"image,omitempty"`
	SQL     string `json:"sql,omitempty"`
	Path    string `json:"path,omitempty"`
	Table   string `json:"table,omitempty"`
}

// Response carries the result of any command. Only the fields relevant to the
// command are set; Error and ErrorType are set on failure.
type Response struct {
	Image     []byte   `json:"image,omitempty"`
	Rows      []Row    `json:"rows,omitempty"`
	Names     []string `json:"names,omitempty"`
	Count     int64    `json:"count,omitempty"`
	OK        bool     `json:"ok,omitempty"`
	Error     string   `json:"error,omitempty"`
	ErrorType string   `json:"error_type,omitempty"`
}
