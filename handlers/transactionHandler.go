package handlers

import (
	"ClinicHub/models"
	"ClinicHub/services"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	service *services.FinanceService
	now     func() time.Time
}

func NewTransactionHandler(service *services.FinanceService) *TransactionHandler {
	return &TransactionHandler{service: service, now: time.Now}
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var transaction models.Transaction
	if err := c.ShouldBindJSON(&transaction); err != nil {
		badRequest(c, err)
		return
	}
	transaction.ID = ""
	if err := h.service.Create(c.Request.Context(), &transaction); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transaction)
}

func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	transaction, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}

// GetAllTransactions accepts ?from=, ?to=, ?type= and ?status=.
func (h *TransactionHandler) GetAllTransactions(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	transactions, err := h.service.List(c.Request.Context(), models.TransactionFilter{
		From:   from,
		To:     to,
		Type:   models.TransactionType(c.Query("type")),
		Status: models.TransactionStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var transaction models.Transaction
	if err := c.ShouldBindJSON(&transaction); err != nil {
		badRequest(c, err)
		return
	}
	transaction.ID = c.Param("id")
	if err := h.service.Update(c.Request.Context(), &transaction); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSummary totals the ?from/?to range, defaulting to the current month.
func (h *TransactionHandler) GetSummary(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	if from.IsZero() && to.IsZero() {
		from, to = services.MonthRange(h.now())
	}
	summary, err := h.service.Summary(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
