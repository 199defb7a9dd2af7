package repositories_test

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"easyshop/internal/models"
	"easyshop/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T, dsn string) *repositories.CatalogStore {
	t.Helper()
	store, err := repositories.OpenCatalogStore(repositories.StoreConfig{
		Driver:     repositories.DriverSQLite,
		DSN:        dsn,
		BcryptCost: bcrypt.MinCost,
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestStore(t *testing.T) *repositories.CatalogStore {
	return openStore(t, ":memory:")
}

func strPtr(s string) *string { return &s }

// openStoreWithCollision returns a store whose next insert into table is
// preceded by rawSQL inside the same transaction, after the store's own
// existence check has passed.
func openStoreWithCollision(t *testing.T, table, rawSQL string, args ...any) *repositories.CatalogStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "easyshop.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	store, err := repositories.NewCatalogStore(db, bcrypt.MinCost, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, repositories.Migrate(db, repositories.CurrentSchemaVersion))

	fired := false
	err = db.Callback().Create().Before("gorm:create").Register("test:collide", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec(rawSQL, args...).Error; err != nil {
			tx.AddError(err)
		}
	})
	require.NoError(t, err)
	return store
}

func TestCatalogStore_CreateAccount(t *testing.T) {
	store := newTestStore(t)

	account, err := store.CreateAccount("alice", "a@x.com", "pw1")
	require.NoError(t, err)
	assert.NotZero(t, account.ID)
	assert.Equal(t, "alice", account.Username)
	assert.NotEqual(t, "pw1", account.Password, "password must not be stored in plain form")

	// Duplicate email fails regardless of the other fields
	_, err = store.CreateAccount("alice2", "a@x.com", "pw2")
	assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

	ok, err := store.VerifyCredentials("a@x.com", "pw1")
	require.NoError(t, err)
	assert.True(t, ok, "original credentials must remain valid")

	ok, err = store.VerifyCredentials("a@x.com", "pw2")
	require.NoError(t, err)
	assert.False(t, ok)

	// Email comparison is case-sensitive
	other, err := store.CreateAccount("bob", "A@x.com", "pw3")
	require.NoError(t, err)
	assert.NotEqual(t, account.ID, other.ID)
}

func TestCatalogStore_CreateAccountInvalidInput(t *testing.T) {
	store := newTestStore(t)

	cases := []struct {
		name                      string
		username, email, password string
	}{
		{"empty username", "", "a@x.com", "pw"},
		{"empty email", "alice", "", "pw"},
		{"empty password", "alice", "a@x.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.CreateAccount(tc.username, tc.email, tc.password)
			assert.ErrorIs(t, err, repositories.ErrInvalidInput)
		})
	}
}

func TestCatalogStore_CreateAccountDuplicateEmailWinsOverValidation(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateAccount("alice", "a@x.com", "pw1")
	require.NoError(t, err)

	_, err = store.CreateAccount("", "a@x.com", "")
	assert.ErrorIs(t, err, repositories.ErrAlreadyExists)
}

func TestCatalogStore_CreateAccountLongPassword(t *testing.T) {
	store := newTestStore(t)
	long := strings.Repeat("p", 200)

	_, err := store.CreateAccount("alice", "a@x.com", long)
	require.NoError(t, err)

	ok, err := store.VerifyCredentials("a@x.com", long)
	require.NoError(t, err)
	assert.True(t, ok)

	// Passwords sharing the first 72 bytes stay distinct
	ok, err = store.VerifyCredentials("a@x.com", long[:199]+"q")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogStore_CreateAccountConstraintViolation(t *testing.T) {
	store := openStoreWithCollision(t, "users",
		"INSERT INTO users (username, email, password) VALUES (?, ?, ?)", "mallory", "a@x.com", "x")

	_, err := store.CreateAccount("alice", "a@x.com", "pw1")
	assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

	username, err := store.LookupUsername("a@x.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound, "failed insert rolls back, got %q", username)

	_, err = store.CreateAccount("alice", "a@x.com", "pw1")
	require.NoError(t, err)
}

func TestCatalogStore_VerifyCredentials(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateAccount("alice", "a@x.com", "secret")
	require.NoError(t, err)

	tests := []struct {
		email, password string
		want            bool
	}{
		{"a@x.com", "secret", true},
		{"a@x.com", "Secret", false},
		{"a@x.com", "secret ", false},
		{"A@X.COM", "secret", false},
		{"nobody@x.com", "secret", false},
		{"", "", false},
	}
	for _, tc := range tests {
		ok, err := store.VerifyCredentials(tc.email, tc.password)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "VerifyCredentials(%q, %q)", tc.email, tc.password)
	}
}

func TestCatalogStore_LookupUsername(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateAccount("alice", "a@x.com", "pw1")
	require.NoError(t, err)

	username, err := store.LookupUsername("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, err = store.LookupUsername("missing@x.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCatalogStore_CreateProductCaseInsensitiveUniqueness(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateProduct("Rice", "5kg", "450", nil)
	require.NoError(t, err)
	assert.NotZero(t, id)

	exists, err := store.ProductExists("rice")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = store.CreateProduct("RICE", "1kg", "100", nil)
	assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

	products, err := store.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, models.Product{ID: id, Name: "Rice", Units: "5kg", Price: "450"}, products[0])
}

func TestCatalogStore_CreateProductConstraintViolation(t *testing.T) {
	store := openStoreWithCollision(t, "products",
		"INSERT INTO products (name, units, price) VALUES (?, ?, ?)", "rice", "1kg", "100")

	_, err := store.CreateProduct("Rice", "5kg", "450", nil)
	assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

	products, err := store.ListProducts()
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestCatalogStore_CreateProductConcurrent(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "easyshop.db"))

	const workers = 20
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Rice"
			if i%2 == 1 {
				name = "RICE"
			}
			_, errs[i] = store.CreateProduct(name, "5kg", fmt.Sprint(i), nil)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, repositories.ErrAlreadyExists)
	}
	assert.Equal(t, 1, created)

	products, err := store.ListProducts()
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestCatalogStore_CreateProductInvalidInput(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateProduct("", "5kg", "450", nil)
	assert.ErrorIs(t, err, repositories.ErrInvalidInput)
	_, err = store.CreateProduct("Rice", "", "450", nil)
	assert.ErrorIs(t, err, repositories.ErrInvalidInput)
	_, err = store.CreateProduct("Rice", "5kg", "", nil)
	assert.ErrorIs(t, err, repositories.ErrInvalidInput)

	exists, err := store.ProductExists("")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCatalogStore_ListProductsOrderedByID(t *testing.T) {
	store := newTestStore(t)

	names := []string{"Sugar", "Apples", "Milk"}
	var ids []int64
	for _, name := range names {
		id, err := store.CreateProduct(name, "1", "10", strPtr("content://images/"+name))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	products, err := store.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, len(names))
	for i, p := range products {
		assert.Equal(t, ids[i], p.ID)
		assert.Equal(t, names[i], p.Name)
		require.NotNil(t, p.ImageReference)
		assert.Equal(t, "content://images/"+names[i], *p.ImageReference)
	}
	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])
}

func TestCatalogStore_ListProductsEmpty(t *testing.T) {
	store := newTestStore(t)

	products, err := store.ListProducts()
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestCatalogStore_UpdateProduct(t *testing.T) {
	store := newTestStore(t)
	id, err := store.CreateProduct("Rice", "5kg", "450", strPtr("content://img/1"))
	require.NoError(t, err)

	// No new image keeps the stored one
	updated, err := store.UpdateProduct(id, "Basmati Rice", "10kg", "900", nil)
	require.NoError(t, err)
	assert.True(t, updated)

	product, err := store.GetProduct(id)
	require.NoError(t, err)
	assert.Equal(t, "Basmati Rice", product.Name)
	assert.Equal(t, "10kg", product.Units)
	assert.Equal(t, "900", product.Price)
	require.NotNil(t, product.ImageReference)
	assert.Equal(t, "content://img/1", *product.ImageReference)

	// A new image replaces it
	updated, err = store.UpdateProduct(id, "Basmati Rice", "10kg", "900", strPtr("content://img/2"))
	require.NoError(t, err)
	assert.True(t, updated)

	product, err = store.GetProduct(id)
	require.NoError(t, err)
	require.NotNil(t, product.ImageReference)
	assert.Equal(t, "content://img/2", *product.ImageReference)

	// Same values still count as an affected row
	updated, err = store.UpdateProduct(id, "Basmati Rice", "10kg", "900", nil)
	require.NoError(t, err)
	assert.True(t, updated)

	// Changing only the case of its own name is allowed
	updated, err = store.UpdateProduct(id, "BASMATI RICE", "10kg", "900", nil)
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestCatalogStore_UpdateProductMissingAndConflicts(t *testing.T) {
	store := newTestStore(t)
	riceID, err := store.CreateProduct("Rice", "5kg", "450", nil)
	require.NoError(t, err)
	_, err = store.CreateProduct("Sugar", "1kg", "120", nil)
	require.NoError(t, err)

	updated, err := store.UpdateProduct(9999, "Beans", "1kg", "50", nil)
	require.NoError(t, err)
	assert.False(t, updated)

	_, err = store.UpdateProduct(riceID, "sugar", "5kg", "450", nil)
	assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

	_, err = store.UpdateProduct(riceID, "", "5kg", "450", nil)
	assert.ErrorIs(t, err, repositories.ErrInvalidInput)

	product, err := store.GetProduct(riceID)
	require.NoError(t, err)
	assert.Equal(t, "Rice", product.Name)
}

func TestCatalogStore_DeleteProductIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	keep, err := store.CreateProduct("Milk", "1l", "60", nil)
	require.NoError(t, err)
	gone, err := store.CreateProduct("Bread", "1", "40", nil)
	require.NoError(t, err)

	require.NoError(t, store.DeleteProduct(gone))
	require.NoError(t, store.DeleteProduct(gone))

	products, err := store.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, keep, products[0].ID)

	_, err = store.GetProduct(gone)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	// Ids are not handed to a new product while the old row exists, nor after it is gone
	next, err := store.CreateProduct("Bread", "1", "40", nil)
	require.NoError(t, err)
	assert.Greater(t, next, gone)
}

func TestCatalogStore_Close(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ping())

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Ping(), repositories.ErrStoreClosed)
	_, err := store.ListProducts()
	assert.ErrorIs(t, err, repositories.ErrStoreClosed)
	_, err = store.CreateProduct("Rice", "5kg", "450", nil)
	assert.ErrorIs(t, err, repositories.ErrStoreClosed)
	_, err = store.VerifyCredentials("a@x.com", "pw")
	assert.ErrorIs(t, err, repositories.ErrStoreClosed)
	assert.ErrorIs(t, store.DeleteProduct(1), repositories.ErrStoreClosed)
}

func TestCatalogStore_PersistsAcrossReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "easyshop.db")

	store := openStore(t, dsn)
	_, err := store.CreateAccount("alice", "a@x.com", "pw1")
	require.NoError(t, err)
	_, err = store.CreateProduct("Rice", "5kg", "450", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := openStore(t, dsn)
	ok, err := reopened.VerifyCredentials("a@x.com", "pw1")
	require.NoError(t, err)
	assert.True(t, ok)
	products, err := reopened.ListProducts()
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestMigrate_UpgradeDropsData(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "easyshop.db")

	store := openStore(t, dsn)
	_, err := store.CreateAccount("alice", "a@x.com", "pw1")
	require.NoError(t, err)
	_, err = store.CreateProduct("Rice", "5kg", "450", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	version, err := repositories.SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, repositories.CurrentSchemaVersion, version)

	require.NoError(t, repositories.Migrate(db, repositories.CurrentSchemaVersion+1))

	version, err = repositories.SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, repositories.CurrentSchemaVersion+1, version)

	var accounts, products int64
	require.NoError(t, db.Model(&models.Account{}).Count(&accounts).Error)
	require.NoError(t, db.Model(&models.Product{}).Count(&products).Error)
	assert.Zero(t, accounts)
	assert.Zero(t, products)

	// Tables are usable again after the upgrade, including the case-insensitive index
	require.NoError(t, db.Create(&models.Product{Name: "Rice", Units: "5kg", Price: "450"}).Error)
	assert.Error(t, db.Create(&models.Product{Name: "rICE", Units: "5kg", Price: "450"}).Error)
	require.NoError(t, sqlDB.Close())

	// A build with an older schema refuses to open the newer database
	_, err = repositories.OpenCatalogStore(repositories.StoreConfig{DSN: dsn, Logger: quietLogger()})
	assert.Error(t, err)
}

func TestMigrate_SameVersionKeepsData(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "easyshop.db")

	store := openStore(t, dsn)
	_, err := store.CreateProduct("Rice", "5kg", "450", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, repositories.Migrate(db, repositories.CurrentSchemaVersion))

	var products int64
	require.NoError(t, db.Model(&models.Product{}).Count(&products).Error)
	assert.Equal(t, int64(1), products)
}

func TestOpenCatalogStore_UnsupportedDriver(t *testing.T) {
	_, err := repositories.OpenCatalogStore(repositories.StoreConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}
