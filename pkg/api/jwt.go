package api

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/moveaside/moveaside/pkg/util"
)

// VehicleScope must be granted to tokens that report vehicle locations or
// preview a vehicle's alerts.
const VehicleScope = "write:vehicle_location"

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Scope string `json:"scope"`
}

func (c CustomClaims) Scopes() []string {
	return strings.Fields(c.Scope)
}

func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken checks the bearer token against the Auth0 tenant set in
// MOVEASIDE_AUTH0_DOMAIN. Without a domain configured every request passes.
func EnsureValidToken() (fiber.Handler, error) {
	env := util.GetEnvironmentVariables()

	if env["MOVEASIDE_AUTH0_DOMAIN"] == "" {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}, nil
	}

	issuerURL, err := url.Parse("https://" + env["MOVEASIDE_AUTH0_DOMAIN"] + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{env["MOVEASIDE_AUTH0_AUDIENCE"]},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	return func(c *fiber.Ctx) (err error) {
		authHeader := c.Get("Authorization")

		jwtToken, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || jwtToken == "" {
			c.SendStatus(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Authorization header is required",
			})
		}

		claimsI, jwtErr := jwtValidator.ValidateToken(c.UserContext(), jwtToken)
		if jwtErr != nil {
			c.SendStatus(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Invalid auth token",
			})
		}

		claims := claimsI.(*validator.ValidatedClaims)
		c.Locals("account_userid", claims.RegisteredClaims.Subject)

		if customClaims, ok := claims.CustomClaims.(*CustomClaims); ok {
			c.Locals("account_scopes", customClaims.Scopes())
		}

		return c.Next()
	}, nil
}

// RequireScope rejects authenticated requests whose token was not granted
// scope. Requests that went through no authentication pass.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, authenticated := c.Locals("account_userid").(string); !authenticated {
			return c.Next()
		}

		scopes, _ := c.Locals("account_scopes").([]string)
		if !slices.Contains(scopes, scope) {
			c.SendStatus(fiber.StatusForbidden)
			return c.JSON(fiber.Map{
				"error": fmt.Sprintf("Token is missing the %s scope", scope),
			})
		}

		return c.Next()
	}
}
