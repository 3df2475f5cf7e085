// Package auth provides authentication and authorisation for Builder Core.
//
// It implements a 3-tier role model (USER → MODERATOR → ADMIN) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - JWT access/refresh token rotation with family-based theft detection
//   - Email-keyed accounts (email is the login identifier, username the
//     display name)
//
// Ownership is the default access model: a regular user can read and modify
// only their own account, profile, and templates. Moderators additionally
// read everything; admins bypass ownership checks entirely.
package auth
