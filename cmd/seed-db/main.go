// Command seed-db loads development fixtures: workplaces, a catalog
// covering every product kind, users, a pair of coupons, and an API token
// for the first staff user.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/volna/booking-api/internal/domain/catalog"
	"github.com/volna/booking-api/internal/domain/coupon"
	"github.com/volna/booking-api/internal/storage/postgres"
)

type workplaceJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}

type productJSON struct {
	ID                     string          `json:"id"`
	Kind                   string          `json:"kind"`
	Name                   string          `json:"name"`
	Price                  decimal.Decimal `json:"price"`
	DurationDays           int             `json:"duration_days"`
	AcademicLevels         []string        `json:"academic_levels"`
	TicketCount            int             `json:"ticket_count"`
	WorkplaceID            string          `json:"workplace_id"`
	StartAt                *time.Time      `json:"start_at"`
	EndAt                  *time.Time      `json:"end_at"`
	Seats                  int             `json:"seats"`
	ReservedSeats          int             `json:"reserved_seats"`
	ExclusiveMembershipIDs []string        `json:"exclusive_membership_ids"`
}

type userJSON struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	IsStaff       bool   `json:"is_staff"`
	AcademicLevel string `json:"academic_level"`
	Tickets       int    `json:"tickets"`
	Phone         string `json:"phone"`
	City          string `json:"city"`
}

type fixturesJSON struct {
	Workplaces []workplaceJSON `json:"workplaces"`
	Products   []productJSON   `json:"products"`
	Users      []userJSON      `json:"users"`
}

func main() {
	var (
		databaseURL  string
		fixturesFile string
		apiToken     string
		memberToken  string
		tokenPepper  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&fixturesFile, "fixtures-file", "db/seed/fixtures.json", "path to fixtures JSON file")
	flag.StringVar(&apiToken, "api-token", "", "API token to seed for the staff user (or BOOKING_SEED_TOKEN env)")
	flag.StringVar(&memberToken, "member-token", "", "API token to seed for the first non-staff user")
	flag.StringVar(&tokenPepper, "token-pepper", "", "HMAC pepper for token hashing (or BOOKING_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiToken == "" {
		apiToken = os.Getenv("BOOKING_SEED_TOKEN")
	}
	if tokenPepper == "" {
		tokenPepper = os.Getenv("BOOKING_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, fixturesFile, apiToken, memberToken, tokenPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, fixturesFile, apiToken, memberToken, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading fixtures file", slog.String("path", fixturesFile))

	data, err := os.ReadFile(fixturesFile)
	if err != nil {
		return errors.Wrap(err, "read fixtures file")
	}

	var fixtures fixturesJSON
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return errors.Wrap(err, "parse fixtures JSON")
	}

	if err := seedWorkplaces(ctx, pool, fixtures.Workplaces); err != nil {
		return errors.Wrap(err, "seed workplaces")
	}
	if err := seedProducts(ctx, pool, fixtures.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedUsers(ctx, pool, fixtures.Users); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if apiToken != "" {
		if err := seedToken(ctx, pool, fixtures.Users, apiToken, pepper, true); err != nil {
			return errors.Wrap(err, "seed staff token")
		}
	}
	if memberToken != "" {
		if err := seedToken(ctx, pool, fixtures.Users, memberToken, pepper, false); err != nil {
			return errors.Wrap(err, "seed member token")
		}
	}

	return nil
}

const upsertWorkplaceSQL = `INSERT INTO workplaces (id, name, seats)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, seats = EXCLUDED.seats`

func seedWorkplaces(ctx context.Context, pool *pgxpool.Pool, workplaces []workplaceJSON) error {
	slog.Info("upserting workplaces", slog.Int("count", len(workplaces)))

	for _, w := range workplaces {
		if _, err := pool.Exec(ctx, upsertWorkplaceSQL, w.ID, w.Name, w.Seats); err != nil {
			return errors.Wrapf(err, "upsert workplace %s", w.ID)
		}
	}
	return nil
}

const upsertProductSQL = `INSERT INTO products (id, kind, name, price, duration_days,
		academic_levels, ticket_count, workplace_id, start_at, end_at,
		seats, reserved_seats, exclusive_membership_ids)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price,
		duration_days = EXCLUDED.duration_days, academic_levels = EXCLUDED.academic_levels,
		ticket_count = EXCLUDED.ticket_count, workplace_id = EXCLUDED.workplace_id,
		start_at = EXCLUDED.start_at, end_at = EXCLUDED.end_at,
		seats = EXCLUDED.seats, reserved_seats = EXCLUDED.reserved_seats,
		exclusive_membership_ids = EXCLUDED.exclusive_membership_ids`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if !catalog.Kind(p.Kind).Valid() {
			return errors.Errorf("product %s has unknown kind %q", p.ID, p.Kind)
		}
		levels := p.AcademicLevels
		if levels == nil {
			levels = []string{}
		}
		exclusive := p.ExclusiveMembershipIDs
		if exclusive == nil {
			exclusive = []string{}
		}

		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Kind, p.Name, p.Price, p.DurationDays,
			levels, p.TicketCount, p.WorkplaceID, p.StartAt, p.EndAt,
			p.Seats, p.ReservedSeats, exclusive,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("kind", p.Kind))
	}
	return nil
}

const upsertUserSQL = `INSERT INTO users (id, email, first_name, last_name,
		is_staff, academic_level, tickets, phone, city)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email,
		first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		is_staff = EXCLUDED.is_staff, academic_level = EXCLUDED.academic_level,
		tickets = EXCLUDED.tickets, phone = EXCLUDED.phone, city = EXCLUDED.city`

func seedUsers(ctx context.Context, pool *pgxpool.Pool, users []userJSON) error {
	slog.Info("upserting users", slog.Int("count", len(users)))

	for _, u := range users {
		if _, err := pool.Exec(ctx, upsertUserSQL,
			u.ID, u.Email, u.FirstName, u.LastName,
			u.IsStaff, u.AcademicLevel, u.Tickets, u.Phone, u.City,
		); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.ID)
		}
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding development coupons")

	repo := postgres.NewCouponRepository(pool)
	coupons := []*coupon.Coupon{
		{
			Code:            "WELCOME15",
			PercentOff:      15,
			MaxUsePerUser:   1,
			ApplicableKinds: []catalog.Kind{catalog.KindMembership},
			Details:         "Welcome: 15% off a membership",
			Active:          true,
		},
		{
			Code:                 "RETIRE20",
			Value:                decimal.NewFromInt(20),
			MaxUse:               50,
			ApplicableProductIDs: []string{"retirement-fall"},
			Details:              "$20 off the fall retirement",
			Active:               true,
		},
		{
			Code:            "FREEPASS",
			PercentOff:      100,
			ApplicableKinds: []catalog.Kind{catalog.KindMembership},
			Details:         "Comp: free membership",
			Active:          true,
		},
	}

	for _, c := range coupons {
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code))
	}
	return nil
}

const upsertTokenSQL = `INSERT INTO api_tokens (token_hash, user_id, name)
	VALUES ($1, $2, $3)
	ON CONFLICT (token_hash) DO UPDATE SET user_id = EXCLUDED.user_id, name = EXCLUDED.name`

func seedToken(ctx context.Context, pool *pgxpool.Pool, users []userJSON, token, pepper string, staff bool) error {
	var userID string
	for _, u := range users {
		if u.IsStaff == staff {
			userID = u.ID
			break
		}
	}
	if userID == "" {
		return errors.Errorf("no fixture user with is_staff=%v to attach the token to", staff)
	}

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(token))
	hash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertTokenSQL, hash, userID, "Seeded token"); err != nil {
		return errors.Wrap(err, "upsert token")
	}

	slog.Info("upserted api token", slog.String("user_id", userID))
	return nil
}
