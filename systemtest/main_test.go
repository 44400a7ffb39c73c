package systemtest

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	internalhttp "github.com/edgehive/provisiond/internal/api/http"
	"github.com/edgehive/provisiond/internal/auth"
	"github.com/edgehive/provisiond/internal/db"
	"github.com/edgehive/provisiond/internal/provision"
	"github.com/edgehive/provisiond/internal/store"
	"github.com/edgehive/provisiond/systemtest/postgres"
	"github.com/edgehive/provisiond/systemtest/tests"
)

func TestSystemIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping system tests in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Start(ctx, "provisiond", "provisiond", "provisiond")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = postgres.Terminate(context.Background(), container)
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(dbURL, ""))

	pool, err := db.InitPool(ctx, db.Config{URL: dbURL})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	profileStore := store.NewProfileStore(pool)
	deviceStore := store.NewDeviceStore(pool)
	keyIndex := store.NewKeyIndex(profileStore, time.Second, nil)

	issuer := provision.NewIssuer(deviceStore)
	provisioningService := provision.NewService(keyIndex, deviceStore, issuer, nil)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("system-test-password"), bcrypt.MinCost)
	require.NoError(t, err)
	authService := auth.NewService(auth.Config{
		JWTSecret:         "system-test-secret",
		TokenTTL:          time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: string(passwordHash),
	})

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	internalhttp.SetupRoute(engine, &internalhttp.Services{
		Provisioning: provisioningService,
		Auth:         authService,
		Profiles:     profileStore,
		KeyIndex:     keyIndex,
	})

	env := &tests.Env{
		Engine:   engine,
		Pool:     pool,
		Profiles: profileStore,
		Devices:  deviceStore,
	}

	t.Run("UnknownKey", func(t *testing.T) { tests.UnknownKey(t, env) })
	t.Run("DisabledProfile", func(t *testing.T) { tests.DisabledProfile(t, env) })
	t.Run("PreProvisionedDevice", func(t *testing.T) { tests.PreProvisionedDevice(t, env) })
	t.Run("CreateDeviceTokenEcho", func(t *testing.T) { tests.CreateDeviceTokenEcho(t, env) })
	t.Run("CreateDeviceCertificate", func(t *testing.T) { tests.CreateDeviceCertificate(t, env) })
	t.Run("DuplicateToken", func(t *testing.T) { tests.DuplicateToken(t, env) })
	t.Run("ConcurrentCreation", func(t *testing.T) { tests.ConcurrentCreation(t, env) })
	t.Run("AdminProfileLifecycle", func(t *testing.T) { tests.AdminProfileLifecycle(t, env) })
}
