// Package repository define los contratos de almacenamiento relacional del broker.
//
//	┌──────────────────────────────────────────────┐
//	│   services (auth) / identity / jwt keysource │
//	└──────────────────────────────────────────────┘
//	                      │
//	                      ▼
//	┌──────────────────────────────────────────────┐
//	│  domain/repository: AppRepository,           │
//	│                     UserRepository           │
//	└──────────────────────────────────────────────┘
//	             │                    │
//	             ▼                    ▼
//	      ┌─────────────┐      ┌─────────────┐
//	      │  store/pg   │      │ store/memory│
//	      └─────────────┘      └─────────────┘
//
// Convenciones:
//   - AppID se pasa explícitamente; no hay lecturas cross-tenant
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
package repository
