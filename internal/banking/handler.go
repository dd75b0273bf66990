package banking

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nile-pay/nile_pay/internal/directory"
	"github.com/nile-pay/nile_pay/internal/fx"
	"github.com/nile-pay/nile_pay/internal/middleware"
	"github.com/nile-pay/nile_pay/internal/transfer"
	"github.com/nile-pay/nile_pay/internal/wallet"
)

// Handler exposes HTTP endpoints for banking operations.
type Handler struct {
	service *Service
}

// NewHandler constructs a banking handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Withdraw removes funds from the caller's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Withdraw(c.UserContext(), middleware.UserID(c), req.Currency, req.Amount)
	if err != nil {
		return errorToHTTP(err)
	}
	return c.Status(http.StatusCreated).JSON(toOperationResponse(res))
}

// Deposit credits a wallet for a confirmed inbound transfer.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Deposit(c.UserContext(), DepositInput{
		DestinationAccountNumber: req.AccountNumber,
		SourceAccountNumber:      req.SourceAccountNumber,
		SourceBank:               req.SourceBank,
		Currency:                 req.Currency,
		Amount:                   req.Amount,
		TransactionRef:           req.TransactionRef,
	})
	if err != nil {
		return errorToHTTP(err)
	}
	return c.Status(http.StatusCreated).JSON(toDepositResponse(res))
}

// Transfer moves funds to an internal account or an external bank.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	var dest Destination
	switch req.Type {
	case "internal", "":
		dest = InternalDestination{AccountNumber: req.AccountNumber}
	case "external":
		dest = ExternalDestination{AccountNumber: req.AccountNumber, Bank: req.Bank}
	default:
		return fiber.NewError(http.StatusUnprocessableEntity, "transfer type must be internal or external")
	}

	out, err := h.service.Transfer(c.UserContext(), middleware.UserID(c), req.Currency, req.Amount, dest)
	if err != nil {
		return errorToHTTP(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransferResponse(out))
}

// Convert exchanges funds between the caller's wallets in two currencies.
func (h *Handler) Convert(c *fiber.Ctx) error {
	var req ConvertRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Convert(c.UserContext(), middleware.UserID(c), req.Currency, req.TargetCurrency, req.Amount)
	if err != nil {
		return errorToHTTP(err)
	}
	return c.Status(http.StatusCreated).JSON(toConvertResponse(res))
}

// History lists the caller's ledger entries for a currency, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	currency := c.Query("currency")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	entries, page, err := h.service.History(c.UserContext(), middleware.UserID(c), currency, page, limit)
	if err != nil {
		return errorToHTTP(err)
	}
	return c.JSON(toHistoryResponse(entries, page))
}

// Balance reports the caller's balance for a currency.
func (h *Handler) Balance(c *fiber.Ctx) error {
	currency := c.Query("currency")

	bal, err := h.service.Balance(c.UserContext(), middleware.UserID(c), currency)
	if err != nil {
		return errorToHTTP(err)
	}
	return c.JSON(BalanceResponse{
		WalletID: bal.WalletID,
		Balance:  bal.Amount,
		Currency: bal.Currency,
		AsOf:     bal.AsOf,
	})
}

func errorToHTTP(err error) error {
	switch {
	case errors.Is(err, transfer.ErrValidation):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, transfer.ErrSelfTransfer):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, wallet.ErrDuplicateReference):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, wallet.ErrWalletNotFound), errors.Is(err, directory.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, fx.ErrRateNotFound), errors.Is(err, fx.ErrSameCurrency):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, transfer.ErrExternalTransferFailed):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	case errors.Is(err, transfer.ErrCompensationFailed):
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
