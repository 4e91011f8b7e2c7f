package postgres

// Schema creates every ledger table. Statements are idempotent.
// Amounts are NUMERIC and travel as strings to keep decimal precision.
const Schema = `
CREATE TABLE IF NOT EXISTS portfolios (
    id UUID PRIMARY KEY,
    owner_id BIGINT NOT NULL UNIQUE,
    total_balance NUMERIC NOT NULL DEFAULT 0,
    applied_balance NUMERIC NOT NULL DEFAULT 0,
    sale_profit NUMERIC NOT NULL DEFAULT 0,
    income_profit NUMERIC NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS institutions (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS institution_owners (
    institution_id UUID NOT NULL REFERENCES institutions(id),
    owner_id BIGINT NOT NULL,
    PRIMARY KEY (institution_id, owner_id)
);

CREATE TABLE IF NOT EXISTS assets (
    id UUID PRIMARY KEY,
    portfolio_id UUID NOT NULL REFERENCES portfolios(id),
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (portfolio_id, name)
);

CREATE TABLE IF NOT EXISTS events (
    id UUID PRIMARY KEY,
    position BIGSERIAL,
    owner_id BIGINT NOT NULL,
    date TIMESTAMPTZ NOT NULL,
    direction TEXT NOT NULL,
    movement_text TEXT NOT NULL,
    product_text TEXT NOT NULL,
    institution_name TEXT NOT NULL,
    quantity NUMERIC NOT NULL,
    unit_price NUMERIC NOT NULL,
    declared_amount NUMERIC NOT NULL,
    computed_amount NUMERIC NOT NULL,
    is_duplicate BOOLEAN NOT NULL,
    original_event_id UUID REFERENCES events(id),
    movement_type TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_owner_date ON events(owner_id, date) WHERE NOT is_duplicate;

CREATE TABLE IF NOT EXISTS transactions (
    id UUID PRIMARY KEY,
    position BIGSERIAL,
    portfolio_id UUID NOT NULL REFERENCES portfolios(id),
    asset_id UUID REFERENCES assets(id),
    institution_id UUID REFERENCES institutions(id),
    event_id UUID REFERENCES events(id),
    date TIMESTAMPTZ NOT NULL,
    direction TEXT NOT NULL,
    quantity NUMERIC NOT NULL,
    unit_price NUMERIC NOT NULL,
    total_amount NUMERIC,
    average_cost NUMERIC,
    movement_type TEXT NOT NULL,
    transaction_type TEXT NOT NULL,
    tax_document_id UUID,
    created_at TIMESTAMPTZ NOT NULL,
    deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_transactions_portfolio ON transactions(portfolio_id, position);
CREATE INDEX IF NOT EXISTS idx_transactions_asset ON transactions(asset_id, position);

CREATE TABLE IF NOT EXISTS lots (
    id UUID PRIMARY KEY,
    seq BIGSERIAL,
    asset_id UUID NOT NULL REFERENCES assets(id),
    transaction_id UUID NOT NULL REFERENCES transactions(id),
    purchase_date TIMESTAMPTZ NOT NULL,
    unit_price NUMERIC NOT NULL,
    quantity NUMERIC NOT NULL,
    total NUMERIC NOT NULL,
    kind TEXT NOT NULL,
    subtype TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lots_asset_kind ON lots(asset_id, kind, seq);
`
