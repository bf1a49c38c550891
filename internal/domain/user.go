package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	UserID primitive.ObjectID `json:"userId"`
	Role   Role               `json:"role"`
}

type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	Email             string             `bson:"email" json:"email"`
	Password          string             `bson:"password" json:"-"`
	Role              Role               `bson:"role" json:"role"`
	IsAccountVerified bool               `bson:"is_account_verified" json:"isAccountVerified"`
	VerifyOTP         string             `bson:"verify_otp,omitempty" json:"-"`
	VerifyOTPExpireAt time.Time          `bson:"verify_otp_expire_at,omitempty" json:"-"`
	ResetOTP          string             `bson:"reset_otp,omitempty" json:"-"`
	ResetOTPExpireAt  time.Time          `bson:"reset_otp_expire_at,omitempty" json:"-"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}
