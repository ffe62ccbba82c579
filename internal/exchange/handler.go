package exchange

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/accounts"
	"github.com/arvault/arvault/internal/currency"
	"github.com/arvault/arvault/internal/rates"
)

// Handler exposes the exchange service over HTTP.
type Handler struct {
	service *Service
}

// NewHandler builds an exchange HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type balanceRequest struct {
	Balance *decimal.Decimal `json:"balance" validate:"required"`
}

type rateRequest struct {
	BaseCurrency    string           `json:"baseCurrency" validate:"required"`
	CounterCurrency string           `json:"counterCurrency" validate:"required"`
	Rate            *decimal.Decimal `json:"rate" validate:"required"`
}

// Amounts are pointers so a missing field is told apart from zero; a zero
// or negative amount is a recorded decline, not a malformed request.
type exchangeRequest struct {
	BaseCurrency     string           `json:"baseCurrency" validate:"required"`
	CounterCurrency  string           `json:"counterCurrency" validate:"required"`
	BaseAccountID    *int64           `json:"baseAccountId" validate:"required"`
	CounterAccountID *int64           `json:"counterAccountId" validate:"required"`
	BaseAmount       *decimal.Decimal `json:"baseAmount" validate:"required"`
}

const malformed = "malformed request"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// bind decodes the JSON body into out and checks its validate tags.
func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(http.StatusBadRequest, malformed)
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("%s: %s is required", malformed, verrs[0].Field()))
		}
		return fiber.NewError(http.StatusBadRequest, malformed)
	}
	return nil
}

// Accounts lists the house accounts.
func (h *Handler) Accounts(c *fiber.Ctx) error {
	list, err := h.service.Accounts(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(list)
}

// SetAccountBalance overwrites one balance and returns every account.
func (h *Handler) SetAccountBalance(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return fiber.NewError(http.StatusBadRequest, malformed)
	}
	var req balanceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.service.SetAccountBalance(c.UserContext(), id, *req.Balance); err != nil {
		return toHTTPError(err)
	}
	return h.Accounts(c)
}

// Rates returns the rate matrix.
func (h *Handler) Rates(c *fiber.Ctx) error {
	matrix, err := h.service.Rates(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(matrix)
}

// SetRate stores a pair and its reciprocal and returns the refreshed matrix.
func (h *Handler) SetRate(c *fiber.Ctx) error {
	var req rateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	err := h.service.SetRate(c.UserContext(), RateInput{
		BaseCurrency:    currency.Currency(req.BaseCurrency),
		CounterCurrency: currency.Currency(req.CounterCurrency),
		Rate:            *req.Rate,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return h.Rates(c)
}

// Log returns every exchange record in append order.
func (h *Handler) Log(c *fiber.Ctx) error {
	records, err := h.service.Log(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(records)
}

// Exchange runs one exchange. Declined attempts are answered with 422 and
// the record that was written for them.
func (h *Handler) Exchange(c *fiber.Ctx) error {
	var req exchangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	rec, err := h.service.Exchange(c.UserContext(), Request{
		BaseCurrency:     currency.Currency(req.BaseCurrency),
		CounterCurrency:  currency.Currency(req.CounterCurrency),
		BaseAccountID:    *req.BaseAccountID,
		CounterAccountID: *req.CounterAccountID,
		BaseAmount:       *req.BaseAmount,
	})
	if err != nil {
		return toHTTPError(err)
	}
	status := http.StatusOK
	if !rec.OK {
		status = http.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(rec)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, rates.ErrInvalidRate), errors.Is(err, accounts.ErrNegativeBalance):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInfrastructure):
		return fiber.NewError(http.StatusInternalServerError, "exchange could not be processed")
	case errors.Is(err, accounts.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
