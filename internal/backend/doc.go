// Package backend defines the uniform adapter contract over secret-store
// providers and the concrete adapters that implement it.
//
// Every provider is driven through its official CLI as a subprocess. Adapters
// own the translation from the provider's native output to the VaultItem
// shape, so callers never branch on backend kind.
//
// Supported providers:
//   - bitwarden: Bitwarden CLI (bw), items stored as secure notes
//   - 1password: 1Password CLI (op), items stored as secure notes
//   - pass: the standard unix password store (gpg-agent handles auth)
package backend
