// Mock receipt OCR service for local development. Implements the same
// contract as the production OCR provider: POST /receipt/verify with a
// bearer token, JSON in, JSON out. Scores are derived from the request so
// runs are reproducible without an OCR backend.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strings"
)

type verifyRequest struct {
	ImageBase64 string `json:"imageBase64"`
	BrandName   string `json:"brandName"`
	CheckInDate string `json:"checkInDate"`
	PopupID     string `json:"popupId"`
}

type verifyResponse struct {
	Verified      bool   `json:"verified"`
	Score         int    `json:"score"`
	BrandMatched  bool   `json:"brandMatched"`
	DateValid     bool   `json:"dateValid"`
	ExtractedText string `json:"extractedText"`
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/receipt/verify", handleVerify)

	log.Printf("mock receipt OCR listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Deterministic outcome: an image mentioning "fail" (base64 of a marker
	// the caller controls) degrades, everything else verifies.
	resp := verifyResponse{
		Verified:      true,
		Score:         18,
		BrandMatched:  req.BrandName != "",
		DateValid:     req.CheckInDate != "",
		ExtractedText: req.BrandName + " receipt",
	}
	if len(req.ImageBase64) < 8 {
		resp = verifyResponse{Verified: false, Score: 0}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
