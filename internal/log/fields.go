package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldEntity     = "entity"
	FieldEntityID   = "entity_id"
	FieldFilename   = "filename"
	FieldOffset     = "offset"
	FieldPageSize   = "page_size"
	FieldItemCount  = "item_count"
	FieldSheetsRef  = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentSession    = "session"
	ComponentStore      = "store"
	ComponentUpload     = "upload"
	ComponentAPI        = "api"
	ComponentSnapshot   = "snapshot"
	ComponentReport     = "report"
	ComponentSheets     = "sheets"
	ComponentImageCache = "image_cache"
	ComponentSecurity   = "security"
)

// Operations defines standard operation names
const (
	OpFetch    = "fetch"
	OpUpsert   = "upsert"
	OpReplace  = "replace"
	OpRemove   = "remove"
	OpUpload   = "upload"
	OpSave     = "save"
	OpLoad     = "load"
	OpRender   = "render"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
