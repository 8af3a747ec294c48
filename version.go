package pgcrypt

// Version is the library version recorded in envelope headers. Stored values
// carry the version that produced them, so they stay decryptable across
// upgrades even when defaults change.
const Version = "1.2.0"

// product is the name stamped into the Version header line.
const product = "pgcrypt"
