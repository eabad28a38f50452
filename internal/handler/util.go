package handler

import (
	"encoding/json"
	"encoding/xml"
	"net/http"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
)

// writeJSON marshals v before touching the response so an encoding failure
// can still become a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"response encoding failed"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.APIResponse{Error: message})
}

// writeSuccess wraps data in the dashboard's success envelope.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, model.APIResponse{Success: true, Data: data})
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlDial struct {
	XMLName xml.Name `xml:"Dial"`
	Sip     string   `xml:"Sip"`
}

type twimlMessage struct {
	XMLName xml.Name `xml:"Message"`
	Text    string   `xml:",chardata"`
}

// twimlResponse renders its verbs in order.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// writeTwiML writes a TwiML document. Twilio expects 200 even for fallbacks.
func writeTwiML(w http.ResponseWriter, resp twimlResponse) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	xml.NewEncoder(w).Encode(resp)
}
