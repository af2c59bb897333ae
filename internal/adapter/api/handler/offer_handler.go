package handler

import (
	"github.com/labstack/echo/v4"

	"novaland/internal/usecase"
	"novaland/pkg/response"
)

type OfferHandler struct {
	offerUseCase *usecase.OfferUseCase
}

func NewOfferHandler(offerUseCase *usecase.OfferUseCase) *OfferHandler {
	return &OfferHandler{
		offerUseCase: offerUseCase,
	}
}

type submitOfferRequest struct {
	Price float64 `json:"price" validate:"required,gt=0"`
	Body  string  `json:"body"`
}

// SubmitOffer creates a priced offer in the thread
func (h *OfferHandler) SubmitOffer(c echo.Context) error {
	var req submitOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	wallet := c.Get("wallet").(string)

	offer, err := h.offerUseCase.SubmitOffer(c.Request().Context(), wallet, c.Param("id"), usecase.SubmitOfferInput{
		Price: req.Price,
		Body:  req.Body,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, offer)
}

// AcceptOffer starts settlement. Returns 202: the offer is settling and the
// terminal outcome is delivered over the change feed.
func (h *OfferHandler) AcceptOffer(c echo.Context) error {
	wallet := c.Get("wallet").(string)

	offer, err := h.offerUseCase.AcceptOffer(c.Request().Context(), wallet, c.Param("id"), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Accepted(c, offer)
}

// RejectOffer declines a pending offer; the thread stays open
func (h *OfferHandler) RejectOffer(c echo.Context) error {
	wallet := c.Get("wallet").(string)

	offer, err := h.offerUseCase.RejectOffer(c.Request().Context(), wallet, c.Param("id"), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}
