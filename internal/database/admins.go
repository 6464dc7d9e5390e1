package database

import "context"

const getAdminByEmail = `
SELECT id, email, hashed_password, full_name, created_at
FROM admin_users
WHERE email = $1
`

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (AdminUser, error) {
	var a AdminUser
	err := q.db.QueryRow(ctx, getAdminByEmail, email).
		Scan(&a.ID, &a.Email, &a.HashedPassword, &a.FullName, &a.CreatedAt)
	return a, err
}

const createAdmin = `
INSERT INTO admin_users (email, hashed_password, full_name)
VALUES ($1, $2, $3)
RETURNING id, email, hashed_password, full_name, created_at
`

type CreateAdminParams struct {
	Email          string
	HashedPassword string
	FullName       string
}

func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (AdminUser, error) {
	var a AdminUser
	err := q.db.QueryRow(ctx, createAdmin, arg.Email, arg.HashedPassword, arg.FullName).
		Scan(&a.ID, &a.Email, &a.HashedPassword, &a.FullName, &a.CreatedAt)
	return a, err
}
