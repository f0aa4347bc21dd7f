package resultformat

import (
	"net/http"
)

// WriteResponse writes data in the format named by the request's format
// query parameter. JSON is used when the parameter is absent or unknown.
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, status int, data any) error {
	format, err := ParseFormat(req.URL.Query().Get("format"))
	if err != nil {
		format = JSON
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(status)
	return f.Write(w, format, data)
}
