// Package domain contains the transfer record entity and its rules.
//
// It has no dependencies on storage, transport or logging. The JSON field
// names match what the frontend form submits, so a record decoded from a
// request body can be written to disk unchanged.
//
// # Entities
//
//   - [TransferRecord]: one movement of inventory between two stores
//   - [Quantity]: integer unit count for pizza items
//   - [Weight]: decimal kilogram weight for soups and broths
package domain
