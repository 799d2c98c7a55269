package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/chatlog"
	"github.com/ziadkadry99/pdfchat/internal/config"
	"github.com/ziadkadry99/pdfchat/internal/conversation"
	"github.com/ziadkadry99/pdfchat/internal/credentials"
	"github.com/ziadkadry99/pdfchat/internal/documents"
)

type keysResponse struct {
	Success bool                     `json:"success"`
	Keys    []credentials.Credential `json:"keys"`
}

type addKeyRequest struct {
	Label    string `json:"label"`
	KeyValue string `json:"key_value"`
	Provider string `json:"provider"`
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.deps.Credentials.List(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []credentials.Credential{}
	}
	writeJSON(w, http.StatusOK, keysResponse{Success: true, Keys: keys})
}

func (s *Server) handleAddKey(w http.ResponseWriter, r *http.Request) {
	var req addKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.deps.Credentials.Add(r.Context(), userID(r), req.Label, config.ProviderType(req.Provider), req.KeyValue); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "API key added successfully"})
}

func (s *Server) handleActivateKey(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Credentials.Activate(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "API key activated"})
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Credentials.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "API key deleted"})
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	PDFID    string `json:"pdf_id"`
	Pages    int    `json:"page_count"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		// Leave room for multipart framing; the library enforces the exact limit.
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, apiResponse{
				Success: false,
				Message: fmt.Sprintf("File too large. The upload limit is %d MB.", (s.cfg.MaxUploadBytes+1<<20-1)>>20),
			})
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: No file provided", apperr.ErrBadRequest))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: reading upload: %v", apperr.ErrBadRequest, err))
		return
	}

	doc, err := s.deps.Library.Upload(r.Context(), userID(r), header.Filename, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		Message:  "PDF processed successfully",
		Filename: doc.Filename,
		PDFID:    doc.ID,
		Pages:    doc.PageCount,
	})
}

type chatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

type chatResponse struct {
	Success       bool   `json:"success"`
	Response      string `json:"response"`
	ResponseHTML  string `json:"response_html,omitempty"`
	HasPDFContext bool   `json:"has_pdf_context"`
	Language      string `json:"language"`
	PDFName       string `json:"pdf_name,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	reply, err := s.deps.Engine.Respond(r.Context(), userID(r), req.Message, req.Language)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	html, err := s.deps.Renderer.Markdown(reply.Answer)
	if err != nil {
		s.logger.Warn("rendering answer", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Success:       true,
		Response:      reply.Answer,
		ResponseHTML:  html,
		HasPDFContext: reply.HasDocument(),
		Language:      reply.Language,
		PDFName:       reply.DocumentName,
	})
}

func (s *Server) handleClearPDF(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Library.Clear(r.Context(), userID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "PDF context cleared"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	s.deps.Registry.Discard(user)
	s.deps.Engine.Forget(user)
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Logged out"})
}

type pdfsResponse struct {
	Success bool                 `json:"success"`
	PDFs    []documents.Document `json:"pdfs"`
}

type pdfResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	PDF     *documents.Document `json:"pdf"`
}

func (s *Server) handleListPDFs(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Library.List(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []documents.Document{}
	}
	writeJSON(w, http.StatusOK, pdfsResponse{Success: true, PDFs: docs})
}

func (s *Server) handleSelectPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Library.Select(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pdfResponse{
		Success: true,
		Message: "Now chatting with " + doc.Filename,
		PDF:     doc,
	})
}

func (s *Server) handleDeletePDF(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Library.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "PDF deleted successfully"})
}

type historyResponse struct {
	Success bool `json:"success"`
	*chatlog.Page
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	p, err := s.deps.ChatLog.List(r.Context(), userID(r), page, perPage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, Page: p})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.ChatLog.Clear(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("history cleared", zap.String("user_id", userID(r)), zap.Int64("messages", n))
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "History cleared"})
}

type languagesResponse struct {
	Success   bool                    `json:"success"`
	Languages []conversation.Language `json:"languages"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{Success: true, Languages: conversation.Languages()})
}
