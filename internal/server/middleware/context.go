package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/opslens/opslens/pkg/ai"
	"github.com/opslens/opslens/pkg/hybrid"
	"github.com/opslens/opslens/pkg/vector"
)

// AppUser is the authenticated caller. TenantID comes from the verified
// token (or the master tenant config), never from the request body.
type AppUser struct {
	TenantID string
	Role     string
}

type App struct {
	DBConn         *pgxpool.Pool
	Queue          *amqp091.Channel
	Key            *keyfunc.Keyfunc
	S3             *s3.Client
	AiClient       ai.Client
	Vector         *vector.Client
	Orchestrator   *hybrid.Orchestrator
	MasterAPIKey   string
	MasterTenantID string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
