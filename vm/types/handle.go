package types

// Handle is a monotonic 32-bit index into one of the three
// program-wide pools (string, buffer, array). Handles are never
// reused for the lifetime of the Program that allocated them, and an
// array handle's element type is immutable for the handle's
// lifetime.
type Handle uint32

// InvalidHandle is never returned by a pool's Add.
const InvalidHandle Handle = 0

// TypeID identifies a registered tuple or record descriptor. ID 0 is
// reserved as "invalid".
type TypeID uint32

// InvalidTypeID is the reserved "no type" sentinel.
const InvalidTypeID TypeID = 0
