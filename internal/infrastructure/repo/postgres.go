package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bakery-backend/internal/domain"
)

// PostgresRepo is the relational driver. Identifiers stay ObjectID-shaped
// (stored as hex TEXT) so the rest of the system is indifferent to the
// backend; line items and addresses are stored as JSON text columns.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	r := &PostgresRepo{db: db}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepo) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT,
			email TEXT UNIQUE,
			password TEXT,
			role TEXT,
			is_account_verified BOOLEAN,
			verify_otp TEXT,
			verify_otp_expire_at TIMESTAMPTZ,
			reset_otp TEXT,
			reset_otp_expire_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE,
			image TEXT,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT,
			description TEXT,
			price DOUBLE PRECISION,
			image TEXT,
			category_id TEXT,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			items TEXT,
			total_price DOUBLE PRECISION,
			shipping_address TEXT,
			status TEXT,
			payment_method TEXT,
			is_paid BOOLEAN,
			paid_at TIMESTAMPTZ,
			confirmed_at TIMESTAMPTZ,
			delivered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		);`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Orders returns the order repository view of this database.
func (r *PostgresRepo) Orders() *PostgresOrderRepo       { return &PostgresOrderRepo{db: r.db} }
func (r *PostgresRepo) Users() *PostgresUserRepo         { return &PostgresUserRepo{db: r.db} }
func (r *PostgresRepo) Products() *PostgresProductRepo   { return &PostgresProductRepo{db: r.db} }
func (r *PostgresRepo) Categories() *PostgresCategoryRepo { return &PostgresCategoryRepo{db: r.db} }

type PostgresOrderRepo struct {
	db *sql.DB
}

const orderColumns = `id,user_id,items,total_price,shipping_address,status,payment_method,is_paid,paid_at,confirmed_at,delivered_at,created_at,updated_at`

func (r *PostgresOrderRepo) Insert(ctx context.Context, o *domain.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	items, _ := json.Marshal(o.Items)
	addr, _ := json.Marshal(o.ShippingAddress)
	_, err := r.db.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		o.ID.Hex(), o.UserID.Hex(), string(items), o.TotalPrice, string(addr),
		string(o.Status), string(o.PaymentMethod), o.IsPaid,
		nullTime(o.PaidAt), nullTime(o.ConfirmedAt), nullTime(o.DeliveredAt),
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepo) Get(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id.Hex())
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

func (r *PostgresOrderRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID.Hex())
}

func (r *PostgresOrderRepo) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status != "" {
		return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE status=$1 ORDER BY created_at DESC`, string(status))
	}
	return r.list(ctx, `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`)
}

func (r *PostgresOrderRepo) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()
	out := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PostgresOrderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, expect domain.OrderStatus, upd domain.StatusUpdate) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET
			status=$3,
			updated_at=$4,
			confirmed_at=COALESCE($5, confirmed_at),
			delivered_at=COALESCE($6, delivered_at),
			is_paid=COALESCE($7, is_paid),
			paid_at=COALESCE($8, paid_at)
		WHERE id=$1 AND status=$2`,
		id.Hex(), string(expect), string(upd.Status), time.Now().UTC(),
		nullTime(upd.ConfirmedAt), nullTime(upd.DeliveredAt), nullBool(upd.IsPaid), nullTime(upd.PaidAt))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id.Hex()).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *PostgresOrderRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id=$1`, id.Hex())
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresOrderRepo) Stats(ctx context.Context) (*domain.OrderStats, error) {
	stats := &domain.OrderStats{}
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status=$1),
			COUNT(*) FILTER (WHERE status=$2),
			COUNT(*) FILTER (WHERE status=$3),
			COALESCE(SUM(total_price) FILTER (WHERE status<>$3), 0)
		FROM orders`,
		string(domain.OrderPending), string(domain.OrderDelivered), string(domain.OrderCancelled)).
		Scan(&stats.TotalOrders, &stats.PendingOrders, &stats.DeliveredOrders, &stats.CancelledOrders, &stats.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate order stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var idHex, userHex, items, addr, status, method string
	var paidAt, confirmedAt, deliveredAt sql.NullTime
	err := row.Scan(&idHex, &userHex, &items, &o.TotalPrice, &addr, &status, &method,
		&o.IsPaid, &paidAt, &confirmedAt, &deliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if o.ID, err = primitive.ObjectIDFromHex(idHex); err != nil {
		return nil, err
	}
	if o.UserID, err = primitive.ObjectIDFromHex(userHex); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(addr), &o.ShippingAddress); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaidAt = timePtr(paidAt)
	o.ConfirmedAt = timePtr(confirmedAt)
	o.DeliveredAt = timePtr(deliveredAt)
	return &o, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type PostgresUserRepo struct {
	db *sql.DB
}

const userColumns = `id,name,email,password,role,is_account_verified,verify_otp,verify_otp_expire_at,reset_otp,reset_otp_expire_at,created_at,updated_at`

func (r *PostgresUserRepo) Insert(ctx context.Context, u *domain.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		u.ID.Hex(), u.Name, u.Email, u.Password, string(u.Role), u.IsAccountVerified,
		u.VerifyOTP, zeroNullTime(u.VerifyOTPExpireAt), u.ResetOTP, zeroNullTime(u.ResetOTPExpireAt),
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id.Hex())
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) Update(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET
			name=$2, email=$3, password=$4, role=$5, is_account_verified=$6,
			verify_otp=$7, verify_otp_expire_at=$8, reset_otp=$9, reset_otp_expire_at=$10,
			updated_at=$11
		WHERE id=$1`,
		u.ID.Hex(), u.Name, u.Email, u.Password, string(u.Role), u.IsAccountVerified,
		u.VerifyOTP, zeroNullTime(u.VerifyOTPExpireAt), u.ResetOTP, zeroNullTime(u.ResetOTPExpireAt),
		u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var idHex, role string
	var verifyExp, resetExp sql.NullTime
	err := row.Scan(&idHex, &u.Name, &u.Email, &u.Password, &role, &u.IsAccountVerified,
		&u.VerifyOTP, &verifyExp, &u.ResetOTP, &resetExp, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if u.ID, err = primitive.ObjectIDFromHex(idHex); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if verifyExp.Valid {
		u.VerifyOTPExpireAt = verifyExp.Time
	}
	if resetExp.Valid {
		u.ResetOTPExpireAt = resetExp.Time
	}
	return &u, nil
}

func zeroNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func isUniqueViolation(err error) bool {
	// lib/pq unique_violation
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}

type PostgresCategoryRepo struct {
	db *sql.DB
}

func (r *PostgresCategoryRepo) Insert(ctx context.Context, c *domain.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (id,name,image,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID.Hex(), c.Name, c.Image, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (r *PostgresCategoryRepo) Get(ctx context.Context, id primitive.ObjectID) (*domain.Category, error) {
	var c domain.Category
	var idHex string
	err := r.db.QueryRowContext(ctx, `SELECT id,name,image,created_at,updated_at FROM categories WHERE id=$1`, id.Hex()).
		Scan(&idHex, &c.Name, &c.Image, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	c.ID, err = primitive.ObjectIDFromHex(idHex)
	return &c, err
}

func (r *PostgresCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id,name,image,created_at,updated_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()
	out := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		var idHex string
		if err := rows.Scan(&idHex, &c.Name, &c.Image, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if c.ID, err = primitive.ObjectIDFromHex(idHex); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresCategoryRepo) Update(ctx context.Context, c *domain.Category) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name=$2, image=$3, updated_at=$4 WHERE id=$1`,
		c.ID.Hex(), c.Name, c.Image, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresCategoryRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id=$1`, id.Hex())
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type PostgresProductRepo struct {
	db *sql.DB
}

const productColumns = `id,name,description,price,image,category_id,created_at,updated_at`

func (r *PostgresProductRepo) Insert(ctx context.Context, p *domain.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID.Hex(), p.Name, p.Description, p.Price, p.Image, p.CategoryID.Hex(), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepo) Get(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id.Hex()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *PostgresProductRepo) List(ctx context.Context, categoryID primitive.ObjectID) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY name ASC`
	args := []any{}
	if !categoryID.IsZero() {
		query = `SELECT ` + productColumns + ` FROM products WHERE category_id=$1 ORDER BY name ASC`
		args = append(args, categoryID.Hex())
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()
	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresProductRepo) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET
			name=$2, description=$3, price=$4, image=$5, category_id=$6, updated_at=$7
		WHERE id=$1`,
		p.ID.Hex(), p.Name, p.Description, p.Price, p.Image, p.CategoryID.Hex(), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresProductRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id.Hex())
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var idHex, catHex string
	err := row.Scan(&idHex, &p.Name, &p.Description, &p.Price, &p.Image, &catHex, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.ID, err = primitive.ObjectIDFromHex(idHex); err != nil {
		return nil, err
	}
	if p.CategoryID, err = primitive.ObjectIDFromHex(catHex); err != nil {
		return nil, err
	}
	return &p, nil
}
