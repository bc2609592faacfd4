package auth

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
)

// AuthController owns the credential flows: signup, login, logout, forgot
// password, reset password, and password update. Handlers return errors;
// the classifier is the only place that renders them.
type AuthController struct {
	Users    Users
	Tokens   *TokenService
	Hasher   Hasher
	Notifier Notifier
	Config   Config
	Logger   Logger
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Users == nil {
		panic("Missing Users store in auth controller...")
	}
	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}
	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Hasher == (Hasher{}) {
		c.Hasher = NewHasher(c.Config.GetBcryptCost())
	}
	if c.Notifier == nil {
		c.Notifier = NewLogNotifier(c.Logger)
	}

	return c
}

func WithUsers(users Users) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Users = users
		return c
	}
}

func WithTokens(tokens *TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

func WithConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithNotifier(n Notifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Notifier = n
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// RegisterRoutes mounts the credential flows on the given router, usually
// app.Group("/api/v1/users").
func (a *AuthController) RegisterRoutes(r fiber.Router, guard *Guard) {
	r.Post("/signup", a.Signup)
	r.Post("/login", a.Login)
	r.Get("/logout", a.Logout)
	r.Post("/forgotPassword", a.ForgotPassword)
	r.Patch("/resetPassword/:token", a.ResetPassword)
	r.Patch("/updateMyPassword", guard.Protect(), a.UpdatePassword)
}

// SignupPayload is the signup request body.
type SignupPayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	PasswordConfirm string `form:"passwordConfirm" json:"passwordConfirm"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) Signup(c *fiber.Ctx) error {
	payload := new(SignupPayload)
	if err := c.BodyParser(payload); err != nil {
		return Wrap(err, KindBadRequest, "Invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	// hash before persist; confirmation equality was checked above
	hash, err := a.Hasher.HashPassword(payload.Password)
	if err != nil {
		return Wrap(err, KindInternal, genericMessage)
	}

	// never honor a caller supplied role
	user := &User{
		Name:         payload.Name,
		Email:        NormalizeEmail(payload.Email),
		PasswordHash: hash,
		Role:         RoleUser,
	}

	user, err = a.Users.Create(c.UserContext(), user)
	if err != nil {
		return err
	}

	// a failed welcome notification never fails the signup
	if err := a.Notifier.Send(c.UserContext(), user, a.absoluteURL(c, "/me")); err != nil {
		a.Logger.Warn("signup welcome notification failed: %v", err)
	}

	return a.sendNewToken(c, user, fiber.StatusCreated)
}

// LoginPayload is the login request body.
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		return Wrap(err, KindBadRequest, "Invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	user, err := a.Users.GetByEmailWithPassword(c.UserContext(), payload.Email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return Unauthenticated("Incorrect email or password")
		}
		return err
	}

	if err := a.Hasher.ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			// identical response for unknown email and wrong password
			return Unauthenticated("Incorrect email or password")
		}
		return err
	}

	return a.sendNewToken(c, user, fiber.StatusOK)
}

// Logout tells the client to discard its session token. No server side
// state changes.
func (a *AuthController) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     a.Config.GetCookieName(),
		Value:    "loggedout",
		Expires:  time.Now().Add(-10 * time.Second),
		HTTPOnly: true,
		Secure:   IsProduction(a.Config),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{"status": "success"})
}

// ForgotPasswordPayload is the forgot password request body.
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return Wrap(err, KindBadRequest, "Invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	user, err := a.Users.GetByEmail(c.UserContext(), payload.Email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return NotFound("There is no user with that email address")
		}
		return err
	}

	raw, digest, err := a.Hasher.GenerateResetToken()
	if err != nil {
		return Wrap(err, KindInternal, genericMessage)
	}

	expires := time.Now().Add(ResetTokenTTL)
	if err := a.Users.SetResetToken(c.UserContext(), user.ID, digest, expires); err != nil {
		return err
	}

	resetURL := a.absoluteURL(c, "/api/v1/users/resetPassword/"+raw)
	if err := a.Notifier.Send(c.UserContext(), user, resetURL); err != nil {
		a.Logger.Error("reset notification failed: %v", err)
		// never leave a usable reset token the user was not told about
		if clearErr := a.Users.ClearResetToken(c.UserContext(), user.ID); clearErr != nil {
			a.Logger.Error("clearing reset token failed: %v", clearErr)
		}
		return Unavailable("There was an error sending the email. Try again later")
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Token sent to email",
	})
}

// ResetPasswordPayload is the reset password request body.
type ResetPasswordPayload struct {
	Password        string `form:"password" json:"password"`
	PasswordConfirm string `form:"passwordConfirm" json:"passwordConfirm"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return Wrap(err, KindBadRequest, "Invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	// invalid and expired tokens are indistinguishable
	user, err := a.Users.GetByResetTokenHash(c.UserContext(), HashResetToken(c.Params("token")))
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return BadRequest("Token is invalid or has expired")
		}
		return err
	}

	hash, err := a.Hasher.HashPassword(payload.Password)
	if err != nil {
		return Wrap(err, KindInternal, genericMessage)
	}

	if err := a.Users.UpdatePassword(c.UserContext(), user.ID, hash); err != nil {
		return err
	}

	return a.sendNewToken(c, user, fiber.StatusOK)
}

// UpdatePasswordPayload is the update password request body.
type UpdatePasswordPayload struct {
	PasswordCurrent string `form:"passwordCurrent" json:"passwordCurrent"`
	Password        string `form:"password" json:"password"`
	PasswordConfirm string `form:"passwordConfirm" json:"passwordConfirm"`
}

// Validate will run validation rules
func (r UpdatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PasswordCurrent, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

// UpdatePassword changes the credential of the authenticated user. It must
// be mounted behind Guard.Protect.
func (a *AuthController) UpdatePassword(c *fiber.Ctx) error {
	current, ok := CurrentUser(c)
	if !ok {
		return Internal("update password reached without authentication")
	}

	payload := new(UpdatePasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return Wrap(err, KindBadRequest, "Invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	user, err := a.Users.GetByIDWithPassword(c.UserContext(), current.ID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return NotFound("No user found with this token")
		}
		return err
	}

	if err := a.Hasher.ComparePasswordAndHash(payload.PasswordCurrent, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return Unauthenticated("Your current password is wrong")
		}
		return err
	}

	hash, err := a.Hasher.HashPassword(payload.Password)
	if err != nil {
		return Wrap(err, KindInternal, genericMessage)
	}

	if err := a.Users.UpdatePassword(c.UserContext(), user.ID, hash); err != nil {
		return err
	}

	// tokens issued before this point are now stale
	return a.sendNewToken(c, user, fiber.StatusOK)
}

// sendNewToken issues a session token, mirrors it into the session cookie,
// and writes the success envelope.
func (a *AuthController) sendNewToken(c *fiber.Ctx, user *User, status int) error {
	token, err := a.Tokens.Issue(user.ID.String())
	if err != nil {
		return Wrap(err, KindInternal, genericMessage)
	}

	// the cookie lives exactly as long as the token it mirrors
	c.Cookie(&fiber.Cookie{
		Name:     a.Config.GetCookieName(),
		Value:    token,
		Expires:  time.Now().Add(a.Tokens.Expiration()),
		HTTPOnly: true,
		Secure:   IsProduction(a.Config),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	user.PasswordHash = ""

	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"data":   fiber.Map{"user": user},
	})
}

func (a *AuthController) absoluteURL(c *fiber.Ctx, path string) string {
	return fmt.Sprintf("%s://%s%s", c.Protocol(), c.Hostname(), path)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}
