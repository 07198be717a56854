package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/application/usecase"
	"branchPicker/internal/modules/picker/domain"
	"branchPicker/internal/shared/auth"
	"branchPicker/internal/shared/httputil"
)

// Dependencies are shared by the bridge, API and widget handlers.
type Dependencies struct {
	Loader      *usecase.LoadEntriesUseCase
	Selector    *usecase.SelectEntryUseCase
	Validator   auth.TokenValidator
	Defaults    domain.Defaults
	InitTimeout time.Duration
	SendBuffer  int
}

func (d Dependencies) initTimeout() time.Duration {
	if d.InitTimeout <= 0 {
		return 5 * time.Second
	}
	return d.InitTimeout
}

var errorMapper = httputil.NewErrorMapper().
	WithMapping(port.ErrMissingContentType, http.StatusBadRequest, "content type not configured").
	WithMapping(port.ErrEntryNotFound, http.StatusNotFound, "entry not found").
	WithMapping(auth.ErrMissingToken, http.StatusUnauthorized, "missing token").
	WithMapping(auth.ErrInvalidToken, http.StatusUnauthorized, "invalid token").
	WithMapping(auth.ErrStackMismatch, http.StatusForbidden, "token not valid for stack").
	WithMapping(port.ErrDeliveryForbidden, http.StatusBadGateway, "delivery api rejected credentials").
	WithMapping(port.ErrDeliveryNotFound, http.StatusBadGateway, "content type or branch not found").
	WithDefault(http.StatusBadGateway, "unable to load entries")

// authorize validates the caller token and its stack scope.
func authorize(c echo.Context, validator auth.TokenValidator, apiKey string) (*auth.Claims, error) {
	claims, err := validator.Validate(auth.ExtractToken(c.Request(), "token"))
	if err != nil {
		return nil, err
	}
	if !claims.AllowsStack(apiKey) {
		return nil, auth.ErrStackMismatch
	}
	return claims, nil
}

func newSession(deps Dependencies, id string, cfg domain.WidgetConfig, field port.HostField) *usecase.WidgetSession {
	return usecase.NewWidgetSession(id, cfg, field, deps.Loader, deps.Selector)
}

func statusFor(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "delivery api timeout"
	}
	info := errorMapper.Map(err)
	return info.Status, info.Message
}

func trimmed(value string) string { return strings.TrimSpace(value) }
