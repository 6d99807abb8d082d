package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eulaprotocol/triway/constants"
	"github.com/eulaprotocol/triway/internal/common"
	"github.com/eulaprotocol/triway/internal/forensic"
	"github.com/eulaprotocol/triway/internal/repository"
)

// handleCreateVerification accepts a multipart submission with three
// files (invoice, purchase_order, proof_of_delivery) plus an optional
// wallet_address, runs the audit, and persists the outcome.
func (s *Server) handleCreateVerification(c *gin.Context) {
	wallet := c.PostForm("wallet_address")
	if wallet != "" {
		v := common.NewValidator().Field("wallet_address", wallet, common.WalletAddress)
		if v.HasErrors() {
			s.errorJSON(c, v.Error())
			return
		}
		c.Request = c.Request.WithContext(common.WithWallet(c.Request.Context(), wallet))
	}

	invoice, err := s.readUpload(c, "invoice", constants.DocInvoice)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	po, err := s.readUpload(c, "purchase_order", constants.DocPurchaseOrder)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	pod, err := s.readUpload(c, "proof_of_delivery", constants.DocProofOfDelivery)
	if err != nil {
		s.errorJSON(c, err)
		return
	}

	result, err := s.audit.RunAudit(c.Request.Context(), forensic.AuditRequest{
		Invoice:         invoice,
		PurchaseOrder:   po,
		ProofOfDelivery: pod,
		WalletAddress:   wallet,
	})
	if err != nil {
		s.errorJSON(c, err)
		return
	}

	rec, err := repository.NewRecord(result, wallet)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	if err := s.verifications.Create(c.Request.Context(), rec); err != nil {
		s.errorJSON(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleGetVerification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.errorJSON(c, common.NewAppError("INVALID_ID", "id must be a UUID", common.ErrInvalidInput))
		return
	}

	rec, err := s.verifications.GetByID(c.Request.Context(), id)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleListVerifications(c *gin.Context) {
	v := common.NewValidator().Field("status", c.Query("status"), common.MaxLength(32))
	if w := c.Query("wallet"); w != "" {
		v.Field("wallet", w, common.WalletAddress)
	}
	if v.HasErrors() {
		s.errorJSON(c, v.Error())
		return
	}

	filter := repository.ListFilter{
		Status: constants.VerificationStatus(c.Query("status")),
		Wallet: c.Query("wallet"),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.errorJSON(c, common.NewAppError("INVALID_LIMIT", "limit must be an integer", common.ErrInvalidInput))
			return
		}
		filter.Limit = n
	}

	recs, err := s.verifications.List(c.Request.Context(), filter)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verifications": recs, "count": len(recs)})
}

func (s *Server) handleExportVerification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.errorJSON(c, common.NewAppError("INVALID_ID", "id must be a UUID", common.ErrInvalidInput))
		return
	}

	xlsx, err := s.exporter.ExportAuditXLSX(c.Request.Context(), id)
	if err != nil {
		s.errorJSON(c, err)
		return
	}

	filename := fmt.Sprintf("verification-%s.xlsx", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsx)
}

// readUpload pulls one named file out of the multipart form and checks
// its extension before any bytes hit the pipeline.
func (s *Server) readUpload(c *gin.Context, field string, docType constants.DocumentType) (forensic.DocumentInput, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return forensic.DocumentInput{},
			common.NewAppError("MISSING_FILE", fmt.Sprintf("%s file is required", field), common.ErrInvalidInput)
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return forensic.DocumentInput{},
			common.NewAppError("FILE_TOO_LARGE", fmt.Sprintf("%s exceeds upload limit", field), common.ErrInvalidInput)
	}
	if !constants.IsAllowedExtension(fh.Filename) {
		return forensic.DocumentInput{},
			common.NewAppError("UNSUPPORTED_FORMAT",
				fmt.Sprintf("%s: unsupported file type (accepted: %s)", fh.Filename, strings.Join(constants.FileTypes, ", ")),
				common.ErrInvalidInput)
	}

	content, err := readAll(fh)
	if err != nil {
		return forensic.DocumentInput{}, common.WrapError(err, "read upload")
	}
	return forensic.DocumentInput{
		Content:      content,
		Filename:     fh.Filename,
		DocumentType: docType,
	}, nil
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
